package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/event"
	"github.com/mmorpgfan/fanboard/pkg/middleware"
)

// createReplyRequest は返信作成リクエストのJSON構造。
type createReplyRequest struct {
	// Text は返信本文。
	Text string `json:"text" binding:"required"`
}

// handleCreateReply は投稿への返信を作成しReplyCreatedイベントを発行するハンドラ。
// 投稿者自身は自分の投稿に返信できない。
func (s *Server) handleCreateReply() gin.HandlerFunc {
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
		if post.AuthorID == userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "自分の投稿には返信できません"})
			return
		}

		var req createReplyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		replyID := uuid.New().String()
		if err := s.queries.CreateReply(c.Request.Context(), store.CreateReplyParams{
			ID:       replyID,
			PostID:   post.ID,
			AuthorID: userID,
			Text:     req.Text,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "返信の作成に失敗しました"})
			log.Printf("返信作成エラー: %v", err)
			return
		}

		reply, err := s.queries.GetReplyByID(c.Request.Context(), replyID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "返信の取得に失敗しました"})
			log.Printf("返信取得エラー: %v", err)
			return
		}

		ev, err := event.New(event.TypeReplyCreated, event.ReplyCreatedData{
			ReplyID:         reply.ID,
			ReplyText:       reply.Text,
			ReplyAuthorID:   userID,
			ReplyAuthorName: middleware.GetUsername(c),
			PostID:          post.ID,
			PostTitle:       post.Title,
			PostAuthorID:    post.AuthorID,
		})
		if err != nil {
			// イベント生成に失敗してもログに記録し、返信自体は成功として扱う
			log.Printf("ReplyCreatedイベントの生成に失敗: %v", err)
		} else {
			s.worker.Enqueue(ev)
		}

		c.JSON(http.StatusCreated, reply)
	}
}

// handleAcceptReply は返信を採用するハンドラ。返信先投稿の投稿者のみ実行できる。
// 未採用から採用への遷移が起きた場合だけReplyAcceptedイベントを発行する。
// 採用済みの返信を再度採用してもイベントは発行されない。
func (s *Server) handleAcceptReply() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		reply, err := s.queries.GetReplyByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "返信が見つかりません"})
			return
		}

		post, err := s.queries.GetPostByID(c.Request.Context(), reply.PostID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "投稿が見つかりません"})
			return
		}
		if post.AuthorID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この返信を採用する権限がありません"})
			return
		}

		affected, err := s.queries.AcceptReply(c.Request.Context(), reply.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "返信の採用に失敗しました"})
			log.Printf("返信採用エラー: %v", err)
			return
		}

		// 遷移が起きなかった（既に採用済みの）場合はイベントを発行しない
		if affected > 0 {
			ev, err := event.New(event.TypeReplyAccepted, event.ReplyAcceptedData{
				ReplyID:       reply.ID,
				ReplyAuthorID: reply.AuthorID,
				PostID:        post.ID,
				PostTitle:     post.Title,
			})
			if err != nil {
				log.Printf("ReplyAcceptedイベントの生成に失敗: %v", err)
			} else {
				s.worker.Enqueue(ev)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "返信を採用しました"})
	}
}

// handleDeleteReply は返信を論理削除するハンドラ。返信先投稿の投稿者のみ実行できる。
// 削除ではイベントを発行しない。
func (s *Server) handleDeleteReply() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		reply, err := s.queries.GetReplyByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "返信が見つかりません"})
			return
		}

		post, err := s.queries.GetPostByID(c.Request.Context(), reply.PostID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "投稿が見つかりません"})
			return
		}
		if post.AuthorID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この返信を削除する権限がありません"})
			return
		}

		if err := s.queries.SoftDeleteReply(c.Request.Context(), reply.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "返信の削除に失敗しました"})
			log.Printf("返信削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "返信を削除しました"})
	}
}

// handleMyReplies は自分の投稿に付いた返信を返信数順で返すハンドラ。
// post_id クエリパラメータで対象の投稿を絞り込める。
// order=asc を指定すると返信数の少ない順になる。
func (s *Server) handleMyReplies() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		replies, err := s.queries.ListRepliesToAuthor(c.Request.Context(), store.ListRepliesToAuthorParams{
			AuthorID: userID,
			PostID:   c.Query("post_id"),
			OrderAsc: c.Query("order") == "asc",
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "返信一覧の取得に失敗しました"})
			log.Printf("返信一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"replies": replies})
	}
}
