package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
)

// createNewsletterRequest はお知らせ作成リクエストのJSON構造。
type createNewsletterRequest struct {
	// Subject はメールの件名。
	Subject string `json:"subject" binding:"required,max=200"`
	// Body はメール本文（HTML可）。
	Body string `json:"body" binding:"required"`
}

// handleCreateNewsletter はお知らせの下書きを作成するハンドラ。管理者のみ実行できる。
// 作成時点では送信されない。
func (s *Server) handleCreateNewsletter() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createNewsletterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		newsletterID := uuid.New().String()
		if err := s.queries.CreateNewsletter(c.Request.Context(), store.CreateNewsletterParams{
			ID:      newsletterID,
			Subject: req.Subject,
			Body:    req.Body,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "お知らせの作成に失敗しました"})
			log.Printf("お知らせ作成エラー: %v", err)
			return
		}

		newsletter, err := s.queries.GetNewsletterByID(c.Request.Context(), newsletterID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "お知らせの取得に失敗しました"})
			log.Printf("お知らせ取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, newsletter)
	}
}

// handleSendNewsletter はお知らせを手動送信するハンドラ。管理者のみ実行できる。
// 宛先はメールアドレスを持つ全アクティブユーザーで、ダイジェストの購読設定は参照しない。
// 送信済みのお知らせに対しては何もしない。
func (s *Server) handleSendNewsletter() gin.HandlerFunc {
	return func(c *gin.Context) {
		newsletterID := c.Param("id")
		if _, err := s.queries.GetNewsletterByID(c.Request.Context(), newsletterID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "お知らせが見つかりません"})
			return
		}

		result, err := s.digest.SendOne(c.Request.Context(), newsletterID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "お知らせの送信に失敗しました"})
			log.Printf("お知らせ送信エラー: %v", err)
			return
		}
		if result.AlreadySent {
			c.JSON(http.StatusOK, gin.H{"message": "このお知らせは送信済みです"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":    "お知らせを送信しました",
			"recipients": result.Recipients,
		})
	}
}
