package store

import (
	"context"
	"fmt"
)

// AuthorStats は投稿者カードに表示する集計値。
type AuthorStats struct {
	// PostCount は公開済み投稿の数。
	PostCount int64 `db:"post_count" json:"post_count"`
	// ReplyCount は本人が書いた返信の数（論理削除済みを除く）。
	ReplyCount int64 `db:"reply_count" json:"reply_count"`
	// AcceptedReplyCount は採用された返信の数。
	AcceptedReplyCount int64 `db:"accepted_reply_count" json:"accepted_reply_count"`
}

// GetAuthorStats はユーザーの投稿・返信・採用数を集計する。
func (q *Queries) GetAuthorStats(ctx context.Context, userID string) (AuthorStats, error) {
	var stats AuthorStats
	err := q.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE author_id = ? AND published = 1) AS post_count,
			(SELECT COUNT(*) FROM replies WHERE author_id = ? AND deleted = 0) AS reply_count,
			(SELECT COUNT(*) FROM replies WHERE author_id = ? AND deleted = 0 AND accepted = 1) AS accepted_reply_count`,
		userID, userID, userID,
	)
	if err != nil {
		return AuthorStats{}, fmt.Errorf("投稿者統計の集計に失敗: %w", err)
	}
	return stats, nil
}

// AuthorCategory は投稿者がよく投稿するカテゴリと投稿数。
type AuthorCategory struct {
	Category
	// PostCount はそのカテゴリでの公開済み投稿数。
	PostCount int64 `db:"post_count" json:"post_count"`
}

// ListTopCategoriesByAuthor はユーザーの投稿数が多いカテゴリを上位から返す。
func (q *Queries) ListTopCategoriesByAuthor(ctx context.Context, userID string, limit int64) ([]AuthorCategory, error) {
	categories := []AuthorCategory{}
	err := q.db.SelectContext(ctx, &categories, `
		SELECT c.*, COUNT(p.id) AS post_count
		FROM categories c
		JOIN posts p ON p.category_id = c.id
		WHERE p.author_id = ? AND p.published = 1
		GROUP BY c.id
		ORDER BY post_count DESC, c.code
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿カテゴリの集計に失敗: %w", err)
	}
	return categories, nil
}

// GetLastPostByAuthor はユーザーの最新の公開済み投稿を返す。
// 投稿が1件もない場合はsql.ErrNoRowsを包んだエラーを返す。
func (q *Queries) GetLastPostByAuthor(ctx context.Context, userID string) (Post, error) {
	var p Post
	err := q.db.GetContext(ctx, &p, `
		SELECT * FROM posts
		WHERE author_id = ? AND published = 1
		ORDER BY created_at DESC
		LIMIT 1`,
		userID,
	)
	if err != nil {
		return Post{}, fmt.Errorf("最新投稿の取得に失敗: %w", err)
	}
	return p, nil
}
