package store

import (
	"context"
	"fmt"
	"time"
)

// CreateNotificationParams は通知作成のパラメータ。
type CreateNotificationParams struct {
	// ID は通知の一意識別子（UUID）。
	ID string
	// UserID は通知先のユーザーID。
	UserID string
	// Message は通知メッセージ。
	Message string
	// URL は通知に紐づくリンク先。空でもよい。
	URL string
}

// CreateNotification は新しい通知を未読状態で作成する。
func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, url, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.UserID, arg.Message, arg.URL, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("通知の作成に失敗: %w", err)
	}
	return nil
}

// GetNotificationByID はIDで通知を取得する。
func (q *Queries) GetNotificationByID(ctx context.Context, id string) (Notification, error) {
	var n Notification
	if err := q.db.GetContext(ctx, &n, "SELECT * FROM notifications WHERE id = ?", id); err != nil {
		return Notification{}, fmt.Errorf("通知の取得に失敗: %w", err)
	}
	return n, nil
}

// ListNotificationsByUserID は指定ユーザーの通知を新着順に返す。
func (q *Queries) ListNotificationsByUserID(ctx context.Context, userID string) ([]Notification, error) {
	notifications := []Notification{}
	err := q.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return notifications, nil
}

// ListUnreadNotifications は指定ユーザーの未読通知を新着順に返す。
func (q *Queries) ListUnreadNotifications(ctx context.Context, userID string) ([]Notification, error) {
	notifications := []Notification{}
	err := q.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE user_id = ? AND is_read = 0
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("未読通知一覧の取得に失敗: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead は通知を既読にする。
func (q *Queries) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("通知の既読処理に失敗: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead は指定ユーザーの全通知を既読にする。
func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("全通知の既読処理に失敗: %w", err)
	}
	return nil
}
