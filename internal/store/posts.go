package store

import (
	"context"
	"fmt"
	"time"
)

// CreatePostParams は投稿作成のパラメータ。
type CreatePostParams struct {
	// ID は投稿の一意識別子（UUID）。
	ID string
	// AuthorID は投稿者のユーザーID。
	AuthorID string
	// CategoryID は投稿が属するカテゴリのID。
	CategoryID string
	// Title は投稿のタイトル。
	Title string
	// Body は投稿本文（HTML）。
	Body string
}

// CreatePost は新しい投稿を公開状態で作成する。
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, category_id, title, body, published, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		arg.ID, arg.AuthorID, arg.CategoryID, arg.Title, arg.Body, now, now,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗: %w", err)
	}
	return nil
}

// GetPostByID はIDで投稿を取得する。
func (q *Queries) GetPostByID(ctx context.Context, id string) (Post, error) {
	var p Post
	if err := q.db.GetContext(ctx, &p, "SELECT * FROM posts WHERE id = ?", id); err != nil {
		return Post{}, fmt.Errorf("投稿の取得に失敗: %w", err)
	}
	return p, nil
}

// UpdatePostParams は投稿更新のパラメータ。
type UpdatePostParams struct {
	// Title は投稿のタイトル。
	Title string
	// Body は投稿本文（HTML）。
	Body string
	// CategoryID は投稿が属するカテゴリのID。
	CategoryID string
	// ID は更新対象の投稿ID。
	ID string
}

// UpdatePost は投稿のタイトル・本文・カテゴリを更新する。
// 投稿の編集ではイベントは発行されない。
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, body = ?, category_id = ?, updated_at = ?
		WHERE id = ?`,
		arg.Title, arg.Body, arg.CategoryID, time.Now().UTC(), arg.ID,
	)
	if err != nil {
		return fmt.Errorf("投稿の更新に失敗: %w", err)
	}
	return nil
}

// DeletePost は投稿とその返信を削除する。
func (q *Queries) DeletePost(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM replies WHERE post_id = ?", id); err != nil {
		return fmt.Errorf("返信の削除に失敗: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id); err != nil {
		return fmt.Errorf("投稿の削除に失敗: %w", err)
	}
	return nil
}

// ListPublishedPostsParams は公開投稿一覧取得のパラメータ。
type ListPublishedPostsParams struct {
	// Limit は取得件数の上限。
	Limit int64
	// Offset は取得開始位置。
	Offset int64
}

// ListPublishedPosts は公開中の投稿を新着順に返す。
func (q *Queries) ListPublishedPosts(ctx context.Context, arg ListPublishedPostsParams) ([]Post, error) {
	posts := []Post{}
	err := q.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts
		WHERE published = 1
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, nil
}

// CountPublishedPosts は公開中の投稿数を返す。
func (q *Queries) CountPublishedPosts(ctx context.Context) (int64, error) {
	var count int64
	if err := q.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM posts WHERE published = 1"); err != nil {
		return 0, fmt.Errorf("投稿数の取得に失敗: %w", err)
	}
	return count, nil
}

// ListPostsByAuthor は指定ユーザーの投稿を新着順に返す。
func (q *Queries) ListPostsByAuthor(ctx context.Context, authorID string) ([]Post, error) {
	posts := []Post{}
	err := q.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts
		WHERE author_id = ?
		ORDER BY created_at DESC`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, nil
}

// RankedPost は返信数を付与した投稿。ランキング表示に使用する。
type RankedPost struct {
	Post
	// NumReplies は投稿への返信数（論理削除済みを除く）。
	NumReplies int64 `db:"num_replies" json:"num_replies"`
}

// ListPostsByReplyCount は公開中の投稿を返信数の多い順に返す。
func (q *Queries) ListPostsByReplyCount(ctx context.Context) ([]RankedPost, error) {
	posts := []RankedPost{}
	err := q.db.SelectContext(ctx, &posts, `
		SELECT p.*, COUNT(r.id) AS num_replies
		FROM posts p
		LEFT JOIN replies r ON r.post_id = p.id AND r.deleted = 0
		WHERE p.published = 1
		GROUP BY p.id
		ORDER BY num_replies DESC, p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ランキングの取得に失敗: %w", err)
	}
	return posts, nil
}

// ListPostsSince は指定日時以降に作成された公開中の投稿を古い順に返す。
// 週次ダイジェストの対象記事の収集に使用するため、非公開の投稿は
// 期間内であっても含めない。
func (q *Queries) ListPostsSince(ctx context.Context, since time.Time) ([]Post, error) {
	posts := []Post{}
	err := q.db.SelectContext(ctx, &posts, `
		SELECT * FROM posts
		WHERE created_at >= ? AND published = 1
		ORDER BY created_at`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, nil
}
