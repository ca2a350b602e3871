package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
)

// handleListCategories はカテゴリ一覧を返すハンドラ。
func (s *Server) handleListCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := s.queries.ListCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "カテゴリ一覧の取得に失敗しました"})
			log.Printf("カテゴリ一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}

// createCategoryRequest はカテゴリ作成リクエストのJSON構造。
type createCategoryRequest struct {
	// Code はカテゴリの一意なコード。
	Code string `json:"code" binding:"required,max=50"`
	// Title はカテゴリの表示名。
	Title string `json:"title" binding:"required,max=100"`
}

// handleCreateCategory はカテゴリを作成するハンドラ。管理者のみ実行できる。
func (s *Server) handleCreateCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		categoryID := uuid.New().String()
		if err := s.queries.CreateCategory(c.Request.Context(), store.CreateCategoryParams{
			ID:    categoryID,
			Code:  req.Code,
			Title: req.Title,
		}); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "カテゴリの作成に失敗しました"})
			log.Printf("カテゴリ作成エラー: %v", err)
			return
		}

		category, err := s.queries.GetCategoryByID(c.Request.Context(), categoryID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "カテゴリの取得に失敗しました"})
			log.Printf("カテゴリ取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, category)
	}
}
