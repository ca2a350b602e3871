package store

import (
	"context"
	"fmt"
	"time"
)

// CreateReplyParams は返信作成のパラメータ。
type CreateReplyParams struct {
	// ID は返信の一意識別子（UUID）。
	ID string
	// PostID は返信先の投稿ID。
	PostID string
	// AuthorID は返信者のユーザーID。
	AuthorID string
	// Text は返信本文。
	Text string
}

// CreateReply は新しい返信を作成する。
func (q *Queries) CreateReply(ctx context.Context, arg CreateReplyParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO replies (id, post_id, author_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.PostID, arg.AuthorID, arg.Text, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("返信の作成に失敗: %w", err)
	}
	return nil
}

// GetReplyByID はIDで返信を取得する。
func (q *Queries) GetReplyByID(ctx context.Context, id string) (Reply, error) {
	var r Reply
	if err := q.db.GetContext(ctx, &r, "SELECT * FROM replies WHERE id = ?", id); err != nil {
		return Reply{}, fmt.Errorf("返信の取得に失敗: %w", err)
	}
	return r, nil
}

// AcceptReply は返信を未採用から採用済みへ遷移させる。
// 戻り値は更新された行数。既に採用済みの場合は0を返し、
// 呼び出し側はイベントを発行してはならない。
func (q *Queries) AcceptReply(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"UPDATE replies SET accepted = 1 WHERE id = ? AND accepted = 0", id,
	)
	if err != nil {
		return 0, fmt.Errorf("返信の採用に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新行数の取得に失敗: %w", err)
	}
	return n, nil
}

// SoftDeleteReply は返信を論理削除する。物理削除は行わない。
// 削除によるイベント発行はなく、通知の履歴も影響を受けない。
func (q *Queries) SoftDeleteReply(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "UPDATE replies SET deleted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("返信の削除に失敗: %w", err)
	}
	return nil
}

// ListRepliesByPost は投稿への返信（論理削除済みを除く）を古い順に返す。
func (q *Queries) ListRepliesByPost(ctx context.Context, postID string) ([]Reply, error) {
	replies := []Reply{}
	err := q.db.SelectContext(ctx, &replies, `
		SELECT * FROM replies
		WHERE post_id = ? AND deleted = 0
		ORDER BY created_at`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("返信一覧の取得に失敗: %w", err)
	}
	return replies, nil
}

// ReplyToAuthor は投稿ごとの返信数を付与した返信。
// 「自分の投稿への返信」画面の並べ替えに使用する。
type ReplyToAuthor struct {
	Reply
	// NumPostReplies は返信先投稿の返信総数（論理削除済みを除く）。
	NumPostReplies int64 `db:"num_post_replies" json:"num_post_replies"`
}

// ListRepliesToAuthorParams は自分の投稿への返信一覧取得のパラメータ。
type ListRepliesToAuthorParams struct {
	// AuthorID は投稿の所有者のユーザーID。
	AuthorID string
	// PostID を指定すると対象の投稿への返信のみに絞り込む。空なら全件。
	PostID string
	// OrderAsc がtrueの場合は返信数の少ない順に並べる。
	OrderAsc bool
}

// ListRepliesToAuthor は指定ユーザーの投稿に付いた返信を返信数順に返す。
func (q *Queries) ListRepliesToAuthor(ctx context.Context, arg ListRepliesToAuthorParams) ([]ReplyToAuthor, error) {
	query := `
		SELECT r.*,
			(SELECT COUNT(*) FROM replies r2 WHERE r2.post_id = r.post_id AND r2.deleted = 0) AS num_post_replies
		FROM replies r
		JOIN posts p ON p.id = r.post_id
		WHERE p.author_id = ? AND r.deleted = 0`
	args := []any{arg.AuthorID}

	if arg.PostID != "" {
		query += " AND r.post_id = ?"
		args = append(args, arg.PostID)
	}

	if arg.OrderAsc {
		query += " ORDER BY num_post_replies, r.created_at DESC"
	} else {
		query += " ORDER BY num_post_replies DESC, r.created_at DESC"
	}

	replies := []ReplyToAuthor{}
	if err := q.db.SelectContext(ctx, &replies, query, args...); err != nil {
		return nil, fmt.Errorf("返信一覧の取得に失敗: %w", err)
	}
	return replies, nil
}
