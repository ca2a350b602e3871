package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/middleware"
)

// handleListSubscriptions は認証済みユーザーのカテゴリ購読一覧を返すハンドラ。
func (s *Server) handleListSubscriptions() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		subscriptions, err := s.queries.ListSubscriptionsByUser(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読一覧の取得に失敗しました"})
			log.Printf("購読一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"subscriptions": subscriptions})
	}
}

// createSubscriptionRequest はカテゴリ購読リクエストのJSON構造。
type createSubscriptionRequest struct {
	// CategoryID は購読するカテゴリのID。
	CategoryID string `json:"category_id" binding:"required"`
}

// handleCreateSubscription はカテゴリの購読を開始するハンドラ。
// 同じカテゴリを重複して購読することはできない。
func (s *Server) handleCreateSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		if _, err := s.queries.GetCategoryByID(c.Request.Context(), req.CategoryID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "カテゴリが見つかりません"})
			return
		}

		if err := s.queries.CreateSubscription(c.Request.Context(), store.CreateSubscriptionParams{
			ID:         uuid.New().String(),
			UserID:     userID,
			CategoryID: req.CategoryID,
		}); err != nil {
			// UNIQUE制約違反は重複購読として扱う
			c.JSON(http.StatusConflict, gin.H{"error": "このカテゴリは既に購読しています"})
			log.Printf("購読作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "カテゴリを購読しました"})
	}
}

// handleDeleteSubscription はカテゴリの購読を解除するハンドラ。
func (s *Server) handleDeleteSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		if err := s.queries.DeleteSubscription(c.Request.Context(), store.DeleteSubscriptionParams{
			UserID:     userID,
			CategoryID: c.Param("category_id"),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読の解除に失敗しました"})
			log.Printf("購読解除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "購読を解除しました"})
	}
}

// setNewsletterSubscriptionRequest は週次ダイジェスト購読設定のJSON構造。
type setNewsletterSubscriptionRequest struct {
	// Subscribed は購読するかどうか。
	Subscribed *bool `json:"subscribed" binding:"required"`
}

// handleSetNewsletterSubscription は週次ダイジェストの購読設定を更新するハンドラ。
func (s *Server) handleSetNewsletterSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req setNewsletterSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		if err := s.queries.UpsertNewsletterSubscription(c.Request.Context(), store.UpsertNewsletterSubscriptionParams{
			UserID:     userID,
			Subscribed: *req.Subscribed,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購読設定の更新に失敗しました"})
			log.Printf("ダイジェスト購読設定エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"subscribed": *req.Subscribed})
	}
}
