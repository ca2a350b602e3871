package store

import (
	"context"
	"fmt"
	"time"
)

// CreateSubscriptionParams はカテゴリ購読作成のパラメータ。
type CreateSubscriptionParams struct {
	// ID は購読の一意識別子（UUID）。
	ID string
	// UserID は購読するユーザーのID。
	UserID string
	// CategoryID は購読対象のカテゴリID。
	CategoryID string
}

// CreateSubscription はカテゴリ購読を作成する。
// 同一ユーザー・同一カテゴリの重複購読はUNIQUE制約で拒否される。
func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, category_id, created_at)
		VALUES (?, ?, ?, ?)`,
		arg.ID, arg.UserID, arg.CategoryID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗: %w", err)
	}
	return nil
}

// DeleteSubscriptionParams はカテゴリ購読解除のパラメータ。
type DeleteSubscriptionParams struct {
	// UserID は購読しているユーザーのID。
	UserID string
	// CategoryID は購読対象のカテゴリID。
	CategoryID string
}

// DeleteSubscription はカテゴリ購読を解除する。
func (q *Queries) DeleteSubscription(ctx context.Context, arg DeleteSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE user_id = ? AND category_id = ?",
		arg.UserID, arg.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("購読の解除に失敗: %w", err)
	}
	return nil
}

// ListSubscriptionsByUser は指定ユーザーのカテゴリ購読を全て返す。
func (q *Queries) ListSubscriptionsByUser(ctx context.Context, userID string) ([]Subscription, error) {
	subs := []Subscription{}
	err := q.db.SelectContext(ctx, &subs, `
		SELECT * FROM subscriptions
		WHERE user_id = ?
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗: %w", err)
	}
	return subs, nil
}

// ListCategorySubscribers はカテゴリを購読しているユーザーのうち、
// メールアドレスを持つものをユーザー単位で重複なく返す。
// 新規投稿のファンアウト宛先の解決に使用する。
func (q *Queries) ListCategorySubscribers(ctx context.Context, categoryID string) ([]User, error) {
	users := []User{}
	err := q.db.SelectContext(ctx, &users, `
		SELECT DISTINCT u.*
		FROM users u
		JOIN subscriptions s ON s.user_id = u.id
		WHERE s.category_id = ? AND u.email != ''`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読者一覧の取得に失敗: %w", err)
	}
	return users, nil
}

// UpsertNewsletterSubscriptionParams は週次ダイジェスト購読設定のパラメータ。
type UpsertNewsletterSubscriptionParams struct {
	// UserID はユーザーのID。
	UserID string
	// Subscribed は購読するかどうか。
	Subscribed bool
}

// UpsertNewsletterSubscription は週次ダイジェストの購読設定を作成または更新する。
func (q *Queries) UpsertNewsletterSubscription(ctx context.Context, arg UpsertNewsletterSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscriptions (user_id, subscribed, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET subscribed = excluded.subscribed`,
		arg.UserID, arg.Subscribed, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ダイジェスト購読設定の保存に失敗: %w", err)
	}
	return nil
}

// ListDigestRecipients は週次ダイジェストの宛先を返す。
// 購読中かつ有効なアカウントで、メールアドレスを持つユーザーのみ。
func (q *Queries) ListDigestRecipients(ctx context.Context) ([]User, error) {
	users := []User{}
	err := q.db.SelectContext(ctx, &users, `
		SELECT u.*
		FROM users u
		JOIN newsletter_subscriptions ns ON ns.user_id = u.id
		WHERE ns.subscribed = 1 AND u.is_active = 1 AND u.email != ''
		ORDER BY u.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("ダイジェスト宛先の取得に失敗: %w", err)
	}
	return users, nil
}
