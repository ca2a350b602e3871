package notify

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/store"
)

// newTestWriter はテスト用のインメモリSQLiteでWriterとQueriesを構築する。
func newTestWriter(t *testing.T) (*Writer, *store.Queries) {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	queries := store.New(db)
	return NewWriter(queries), queries
}

// createTestUser はテスト用にユーザーをDBに直接挿入するヘルパー関数。
func createTestUser(t *testing.T, queries *store.Queries, username string) string {
	t.Helper()

	id := uuid.New().String()
	err := queries.CreateUser(t.Context(), store.CreateUserParams{
		ID:           id,
		Username:     username,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("テスト用ユーザーの作成に失敗: %v", err)
	}
	return id
}

// TestWrite は通知の書き込みを検証する。
func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("通知が未読状態で書き込まれること", func(t *testing.T) {
		t.Parallel()
		writer, queries := newTestWriter(t)

		userID := createTestUser(t, queries, "alice")
		n, err := writer.Write(t.Context(), userID, "「レイド募集」にbobさんが返信しました", "/posts/post-1")
		if err != nil {
			t.Fatalf("Write()でエラーが発生: %v", err)
		}
		if n.ID == "" {
			t.Error("通知IDが空")
		}
		if n.IsRead {
			t.Error("新規通知は未読であるべき")
		}
		if n.Message != "「レイド募集」にbobさんが返信しました" {
			t.Errorf("Message = %q", n.Message)
		}
		if n.URL != "/posts/post-1" {
			t.Errorf("URL = %q, want %q", n.URL, "/posts/post-1")
		}

		unread, err := queries.ListUnreadNotifications(t.Context(), userID)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 1 {
			t.Errorf("未読通知数 = %d, want 1", len(unread))
		}
	})

	t.Run("リンクが空でも書き込めること", func(t *testing.T) {
		t.Parallel()
		writer, queries := newTestWriter(t)

		userID := createTestUser(t, queries, "alice")
		n, err := writer.Write(t.Context(), userID, "通知", "")
		if err != nil {
			t.Fatalf("Write()でエラーが発生: %v", err)
		}
		if n.URL != "" {
			t.Errorf("URL = %q, want empty string", n.URL)
		}
	})

	t.Run("存在しないユーザーへの書き込みはエラーを返すこと", func(t *testing.T) {
		t.Parallel()
		writer, _ := newTestWriter(t)

		if _, err := writer.Write(t.Context(), "no-such-user", "通知", ""); err == nil {
			t.Fatal("外部キー制約違反がエラーを返すべき")
		}
	})
}
