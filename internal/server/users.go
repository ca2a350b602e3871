package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// topCategoryLimit は投稿者カードに表示するカテゴリ数の上限。
const topCategoryLimit = 3

// handleAuthorCard は投稿者の活動をまとめた読み取り専用の集計を返すハンドラ。
func (s *Server) handleAuthorCard() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.queries.GetUserByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}

		stats, err := s.queries.GetAuthorStats(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿者情報の取得に失敗しました"})
			log.Printf("投稿者統計取得エラー: %v", err)
			return
		}

		categories, err := s.queries.ListTopCategoriesByAuthor(c.Request.Context(), user.ID, topCategoryLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿者情報の取得に失敗しました"})
			log.Printf("投稿カテゴリ取得エラー: %v", err)
			return
		}

		card := gin.H{
			"user_id":              user.ID,
			"username":             user.Username,
			"post_count":           stats.PostCount,
			"reply_count":          stats.ReplyCount,
			"accepted_reply_count": stats.AcceptedReplyCount,
			"top_categories":       categories,
		}

		// 投稿が1件もないユーザーにはlast_postを含めない
		if lastPost, err := s.queries.GetLastPostByAuthor(c.Request.Context(), user.ID); err == nil {
			card["last_post"] = lastPost
		}

		c.JSON(http.StatusOK, card)
	}
}
