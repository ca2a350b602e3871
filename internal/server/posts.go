package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/event"
	"github.com/mmorpgfan/fanboard/pkg/middleware"
)

// defaultPerPage は投稿一覧の1ページあたりのデフォルト件数。
const defaultPerPage = 20

// maxPerPage は投稿一覧の1ページあたりの最大件数。
const maxPerPage = 100

// handleListPosts は公開中の投稿一覧を新着順で返すハンドラ。
// page と per_page クエリパラメータでページネーションする。
func (s *Server) handleListPosts() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
		if err != nil || page < 1 {
			page = 1
		}
		perPage, err := strconv.ParseInt(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)), 10, 64)
		if err != nil || perPage < 1 {
			perPage = defaultPerPage
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}

		posts, err := s.queries.ListPublishedPosts(c.Request.Context(), store.ListPublishedPostsParams{
			Limit:  perPage,
			Offset: (page - 1) * perPage,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿一覧の取得に失敗しました"})
			log.Printf("投稿一覧取得エラー: %v", err)
			return
		}

		total, err := s.queries.CountPublishedPosts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿一覧の取得に失敗しました"})
			log.Printf("投稿数集計エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"posts":    posts,
			"page":     page,
			"per_page": perPage,
			"total":    total,
		})
	}
}

// handlePostRanking は公開中の投稿を返信数の多い順で返すハンドラ。
func (s *Server) handlePostRanking() gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := s.queries.ListPostsByReplyCount(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ランキングの取得に失敗しました"})
			log.Printf("ランキング取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"posts": posts})
	}
}

// handleGetPost は投稿と論理削除されていない返信を返すハンドラ。
func (s *Server) handleGetPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := s.queries.GetPostByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "投稿が見つかりません"})
			return
		}

		replies, err := s.queries.ListRepliesByPost(c.Request.Context(), post.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "返信一覧の取得に失敗しました"})
			log.Printf("返信一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"post":    post,
			"replies": replies,
		})
	}
}

// createPostRequest は投稿作成リクエストのJSON構造。
type createPostRequest struct {
	// CategoryID は投稿先カテゴリのID。
	CategoryID string `json:"category_id" binding:"required"`
	// Title は投稿のタイトル。
	Title string `json:"title" binding:"required,max=200"`
	// Body は投稿本文。
	Body string `json:"body" binding:"required"`
}

// handleCreatePost は投稿を作成しPostCreatedイベントを発行するハンドラ。
// イベントはワーカーに渡した時点でリクエストとしては完了し、
// 配信の成否はレスポンスに影響しない。
func (s *Server) handleCreatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createPostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		if _, err := s.queries.GetCategoryByID(c.Request.Context(), req.CategoryID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "カテゴリが見つかりません"})
			return
		}

		postID := uuid.New().String()
		if err := s.queries.CreatePost(c.Request.Context(), store.CreatePostParams{
			ID:         postID,
			AuthorID:   userID,
			CategoryID: req.CategoryID,
			Title:      req.Title,
			Body:       req.Body,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の作成に失敗しました"})
			log.Printf("投稿作成エラー: %v", err)
			return
		}

		post, err := s.queries.GetPostByID(c.Request.Context(), postID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の取得に失敗しました"})
			log.Printf("投稿取得エラー: %v", err)
			return
		}

		ev, err := event.New(event.TypePostCreated, event.PostCreatedData{
			PostID:     post.ID,
			CategoryID: post.CategoryID,
			Title:      post.Title,
			Excerpt:    post.Excerpt(),
			AuthorID:   post.AuthorID,
		})
		if err != nil {
			// イベント生成に失敗してもログに記録し、投稿自体は成功として扱う
			log.Printf("PostCreatedイベントの生成に失敗: %v", err)
		} else {
			s.worker.Enqueue(ev)
		}

		c.JSON(http.StatusCreated, post)
	}
}

// handleMyPosts は認証済みユーザー自身の投稿一覧を返すハンドラ。
func (s *Server) handleMyPosts() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		posts, err := s.queries.ListPostsByAuthor(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿一覧の取得に失敗しました"})
			log.Printf("投稿一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"posts": posts})
	}
}

// updatePostRequest は投稿更新リクエストのJSON構造。
type updatePostRequest struct {
	// CategoryID は投稿先カテゴリのID。
	CategoryID string `json:"category_id" binding:"required"`
	// Title は投稿のタイトル。
	Title string `json:"title" binding:"required,max=200"`
	// Body は投稿本文。
	Body string `json:"body" binding:"required"`
}

// handleUpdatePost は投稿を更新するハンドラ。投稿者のみ実行できる。
// 更新ではイベントを発行しない。
func (s *Server) handleUpdatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		post, err := s.queries.GetPostByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "投稿が見つかりません"})
			return
		}
		if post.AuthorID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この投稿を編集する権限がありません"})
			return
		}

		var req updatePostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		if _, err := s.queries.GetCategoryByID(c.Request.Context(), req.CategoryID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "カテゴリが見つかりません"})
			return
		}

		if err := s.queries.UpdatePost(c.Request.Context(), store.UpdatePostParams{
			ID:         post.ID,
			Title:      req.Title,
			Body:       req.Body,
			CategoryID: req.CategoryID,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の更新に失敗しました"})
			log.Printf("投稿更新エラー: %v", err)
			return
		}

		updated, err := s.queries.GetPostByID(c.Request.Context(), post.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の取得に失敗しました"})
			log.Printf("投稿取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

// handleDeletePost は投稿と付随する返信を削除するハンドラ。投稿者のみ実行できる。
// 削除ではイベントを発行しない。
func (s *Server) handleDeletePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		post, err := s.queries.GetPostByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "投稿が見つかりません"})
			return
		}
		if post.AuthorID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この投稿を削除する権限がありません"})
			return
		}

		if err := s.queries.DeletePost(c.Request.Context(), post.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の削除に失敗しました"})
			log.Printf("投稿削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "投稿を削除しました"})
	}
}
