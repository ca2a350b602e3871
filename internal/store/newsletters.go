package store

import (
	"context"
	"fmt"
	"time"
)

// CreateNewsletterParams はお知らせ作成のパラメータ。
type CreateNewsletterParams struct {
	// ID はお知らせの一意識別子（UUID）。
	ID string
	// Subject はメールの件名。
	Subject string
	// Body はメール本文。
	Body string
}

// CreateNewsletter は新しいお知らせを未送信状態で作成する。
func (q *Queries) CreateNewsletter(ctx context.Context, arg CreateNewsletterParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO newsletters (id, subject, body, created_at)
		VALUES (?, ?, ?, ?)`,
		arg.ID, arg.Subject, arg.Body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("お知らせの作成に失敗: %w", err)
	}
	return nil
}

// GetNewsletterByID はIDでお知らせを取得する。
func (q *Queries) GetNewsletterByID(ctx context.Context, id string) (Newsletter, error) {
	var n Newsletter
	if err := q.db.GetContext(ctx, &n, "SELECT * FROM newsletters WHERE id = ?", id); err != nil {
		return Newsletter{}, fmt.Errorf("お知らせの取得に失敗: %w", err)
	}
	return n, nil
}

// ListUnsentNewsletters は未送信のお知らせを作成順に返す。
func (q *Queries) ListUnsentNewsletters(ctx context.Context) ([]Newsletter, error) {
	newsletters := []Newsletter{}
	err := q.db.SelectContext(ctx, &newsletters, `
		SELECT * FROM newsletters
		WHERE sent = 0
		ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("未送信お知らせの取得に失敗: %w", err)
	}
	return newsletters, nil
}

// MarkNewsletterSent はお知らせを送信済みにする。
// 送信処理の後に呼び出すため、送信とマークの間でクラッシュすると
// 再実行時に再送される（at-least-once）。
func (q *Queries) MarkNewsletterSent(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "UPDATE newsletters SET sent = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("送信済みマークに失敗: %w", err)
	}
	return nil
}
