// Package notify はアプリ内通知の書き込みを提供する。
// メール配信の成否とは独立して、通知エンティティを永続化する。
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
)

// Writer はアプリ内通知を書き込む。
// 外部I/Oを伴わない純粋な挿入であり、永続化層のエラーは
// 黙って握り潰さずに呼び出し元へ伝播させる。
type Writer struct {
	// queries はデータベースへのクエリ実行オブジェクト。
	queries *store.Queries
}

// NewWriter は新しいWriterを生成する。
func NewWriter(queries *store.Queries) *Writer {
	return &Writer{queries: queries}
}

// Write は指定ユーザー宛の通知を未読状態で書き込む。
// linkは通知に紐づくリンク先で、空でもよい。
func (w *Writer) Write(ctx context.Context, userID, message, link string) (store.Notification, error) {
	id := uuid.New().String()
	if err := w.queries.CreateNotification(ctx, store.CreateNotificationParams{
		ID:      id,
		UserID:  userID,
		Message: message,
		URL:     link,
	}); err != nil {
		return store.Notification{}, fmt.Errorf("通知の書き込みに失敗: %w", err)
	}

	n, err := w.queries.GetNotificationByID(ctx, id)
	if err != nil {
		return store.Notification{}, fmt.Errorf("書き込んだ通知の取得に失敗: %w", err)
	}
	return n, nil
}
