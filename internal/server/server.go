// Package server はファンボードのHTTP APIサーバーを提供する。
// 認証、投稿、返信、購読、通知、お知らせの各APIをGinでルーティングする。
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/mmorpgfan/fanboard/internal/config"
	"github.com/mmorpgfan/fanboard/internal/digest"
	"github.com/mmorpgfan/fanboard/internal/dispatch"
	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/middleware"
)

// Server はファンボードのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はアプリケーション設定。
	cfg *config.Config
	// db はSQLiteデータベース接続。
	db *sqlx.DB
	// queries はデータベースへのクエリ実行オブジェクト。
	queries *store.Queries
	// worker はドメインイベントの非同期処理ワーカー。
	worker *dispatch.Worker
	// digest はお知らせメールの送信処理。
	digest *digest.Digest
}

// NewServer は新しいHTTPサーバーを生成する。
// 依存はすべて呼び出し元が初期化して注入する。
func NewServer(cfg *config.Config, db *sqlx.DB, queries *store.Queries, worker *dispatch.Worker, dig *digest.Digest) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:  router,
		cfg:     cfg,
		db:      db,
		queries: queries,
		worker:  worker,
		digest:  dig,
	}
	s.setupRoutes()

	return s
}

// shutdownTimeout はシャットダウン時に処理中のリクエストの完了を待つ最大時間。
const shutdownTimeout = 10 * time.Second

// Run はHTTPサーバーを起動し、ctxがキャンセルされるまでリクエストを受け付ける。
// キャンセル後は新規リクエストの受け付けを止め、処理中のリクエストの
// 完了を待ってから戻る。
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// Router はテストからリクエストを流し込むためにルーターを返す。
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")

	// 認証不要の公開API
	{
		auth := api.Group("/auth")
		{
			// ユーザー登録
			auth.POST("/signup", s.handleSignup())
			// ログイン
			auth.POST("/login", s.handleLogin())
		}

		// 公開中の投稿一覧（新着順、ページネーション付き）
		api.GET("/posts", s.handleListPosts())
		// 返信数ランキング
		api.GET("/posts/ranking", s.handlePostRanking())
		// 投稿詳細（返信付き）
		api.GET("/posts/:id", s.handleGetPost())
		// カテゴリ一覧
		api.GET("/categories", s.handleListCategories())
		// 投稿者カード
		api.GET("/users/:id/card", s.handleAuthorCard())
	}

	// 認証必須のAPI
	authed := api.Group("")
	authed.Use(middleware.JWTAuth(s.cfg.JWTSecret))
	{
		posts := authed.Group("/posts")
		{
			// 投稿作成
			posts.POST("", s.handleCreatePost())
			// 自分の投稿一覧
			posts.GET("/mine", s.handleMyPosts())
			// 投稿更新（投稿者のみ）
			posts.PUT("/:id", s.handleUpdatePost())
			// 投稿削除（投稿者のみ）
			posts.DELETE("/:id", s.handleDeletePost())
			// 返信作成
			posts.POST("/:id/replies", s.handleCreateReply())
		}

		replies := authed.Group("/replies")
		{
			// 自分の投稿への返信一覧
			replies.GET("/mine", s.handleMyReplies())
			// 返信の採用（投稿者のみ）
			replies.PUT("/:id/accept", s.handleAcceptReply())
			// 返信の削除（投稿者のみ、論理削除）
			replies.DELETE("/:id", s.handleDeleteReply())
		}

		subscriptions := authed.Group("/subscriptions")
		{
			// カテゴリ購読の一覧
			subscriptions.GET("", s.handleListSubscriptions())
			// カテゴリ購読の開始
			subscriptions.POST("", s.handleCreateSubscription())
			// カテゴリ購読の解除
			subscriptions.DELETE("/:category_id", s.handleDeleteSubscription())
		}

		// 週次ダイジェストの購読設定
		authed.PUT("/newsletter-subscription", s.handleSetNewsletterSubscription())

		notifications := authed.Group("/notifications")
		{
			// 通知一覧取得
			notifications.GET("", s.handleListNotifications())
			// 未読通知一覧取得
			notifications.GET("/unread", s.handleListUnreadNotifications())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkNotificationRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllNotificationsRead())
		}

		// 管理者専用API
		admin := authed.Group("")
		admin.Use(middleware.AdminOnly())
		{
			// カテゴリ作成
			admin.POST("/categories", s.handleCreateCategory())
			// お知らせの下書き作成
			admin.POST("/newsletters", s.handleCreateNewsletter())
			// お知らせの手動送信
			admin.POST("/newsletters/:id/send", s.handleSendNewsletter())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "fanboard"})
	})
}
