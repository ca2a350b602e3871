package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/mail"
	"github.com/mmorpgfan/fanboard/internal/mailtmpl"
	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/event"
)

// fakeTransport は送信内容を記録するテスト用のメールトランスポート。
// failToに登録した宛先への送信は失敗させる。
type fakeTransport struct {
	sent   []mail.Message
	failTo map[string]bool
}

func (f *fakeTransport) Send(_ context.Context, msg mail.Message) error {
	if f.failTo[msg.To] {
		return errors.New("送信失敗")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) SendBatch(ctx context.Context, msgs []mail.Message) error {
	for _, msg := range msgs {
		if err := f.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// newTestPipeline はテスト用のインメモリSQLiteでPipelineを構築する。
func newTestPipeline(t *testing.T) (*Pipeline, *store.Queries, *fakeTransport) {
	t.Helper()

	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	queries := store.New(db)

	renderer, err := mailtmpl.New("https://fanboard.example")
	if err != nil {
		t.Fatalf("Rendererの生成に失敗: %v", err)
	}

	transport := &fakeTransport{failTo: map[string]bool{}}
	return NewPipeline(queries, transport, renderer), queries, transport
}

// createTestUser はテスト用にユーザーをDBに直接挿入するヘルパー関数。
func createTestUser(t *testing.T, queries *store.Queries, username, email string) store.User {
	t.Helper()

	id := uuid.New().String()
	err := queries.CreateUser(t.Context(), store.CreateUserParams{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("テスト用ユーザーの作成に失敗: %v", err)
	}
	user, err := queries.GetUserByID(t.Context(), id)
	if err != nil {
		t.Fatalf("テスト用ユーザーの取得に失敗: %v", err)
	}
	return user
}

// createTestCategory はテスト用にカテゴリをDBに直接挿入するヘルパー関数。
func createTestCategory(t *testing.T, queries *store.Queries, code string) store.Category {
	t.Helper()

	id := uuid.New().String()
	err := queries.CreateCategory(t.Context(), store.CreateCategoryParams{
		ID:    id,
		Code:  code,
		Title: code,
	})
	if err != nil {
		t.Fatalf("テスト用カテゴリの作成に失敗: %v", err)
	}
	category, err := queries.GetCategoryByID(t.Context(), id)
	if err != nil {
		t.Fatalf("テスト用カテゴリの取得に失敗: %v", err)
	}
	return category
}

// subscribe はテスト用にカテゴリ購読をDBに直接挿入するヘルパー関数。
func subscribe(t *testing.T, queries *store.Queries, userID, categoryID string) {
	t.Helper()

	err := queries.CreateSubscription(t.Context(), store.CreateSubscriptionParams{
		ID:         uuid.New().String(),
		UserID:     userID,
		CategoryID: categoryID,
	})
	if err != nil {
		t.Fatalf("テスト用購読の作成に失敗: %v", err)
	}
}

// TestDispatchReplyCreated は新着返信イベントの配信を検証する。
func TestDispatchReplyCreated(t *testing.T) {
	t.Parallel()

	t.Run("投稿者1人にメールが送信されること", func(t *testing.T) {
		t.Parallel()
		pipeline, queries, transport := newTestPipeline(t)

		author := createTestUser(t, queries, "author", "author@example.com")
		ev, err := event.New(event.TypeReplyCreated, event.ReplyCreatedData{
			ReplyID:         "reply-1",
			ReplyText:       "参加します",
			ReplyAuthorID:   "replier-1",
			ReplyAuthorName: "alice",
			PostID:          "post-1",
			PostTitle:       "レイド募集",
			PostAuthorID:    author.ID,
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		result, err := pipeline.Dispatch(t.Context(), ev)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}
		if result.Attempted != 1 {
			t.Errorf("Attempted = %d, want 1", result.Attempted)
		}
		if len(result.Failed) != 0 {
			t.Errorf("Failed = %d件, want 0", len(result.Failed))
		}
		if len(transport.sent) != 1 {
			t.Fatalf("送信数 = %d, want 1", len(transport.sent))
		}
		if transport.sent[0].To != "author@example.com" {
			t.Errorf("宛先 = %q, want %q", transport.sent[0].To, "author@example.com")
		}
		if !strings.Contains(transport.sent[0].Subject, "レイド募集") {
			t.Errorf("件名に投稿タイトルが含まれていない: %q", transport.sent[0].Subject)
		}
		if !strings.Contains(transport.sent[0].Text, "参加します") {
			t.Errorf("本文に返信内容が含まれていない: %q", transport.sent[0].Text)
		}
	})

	t.Run("投稿者にメールアドレスが無い場合は何も送信されないこと", func(t *testing.T) {
		t.Parallel()
		pipeline, queries, transport := newTestPipeline(t)

		author := createTestUser(t, queries, "author", "")
		ev, err := event.New(event.TypeReplyCreated, event.ReplyCreatedData{
			ReplyID:      "reply-1",
			PostID:       "post-1",
			PostTitle:    "レイド募集",
			PostAuthorID: author.ID,
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		result, err := pipeline.Dispatch(t.Context(), ev)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}
		if result.Attempted != 0 {
			t.Errorf("Attempted = %d, want 0", result.Attempted)
		}
		if len(transport.sent) != 0 {
			t.Errorf("送信数 = %d, want 0", len(transport.sent))
		}
	})
}

// TestDispatchReplyAccepted は返信採用イベントの配信を検証する。
func TestDispatchReplyAccepted(t *testing.T) {
	t.Parallel()

	t.Run("返信者1人にメールが送信されること", func(t *testing.T) {
		t.Parallel()
		pipeline, queries, transport := newTestPipeline(t)

		replier := createTestUser(t, queries, "replier", "replier@example.com")
		ev, err := event.New(event.TypeReplyAccepted, event.ReplyAcceptedData{
			ReplyID:       "reply-1",
			ReplyAuthorID: replier.ID,
			PostID:        "post-1",
			PostTitle:     "レイド募集",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		result, err := pipeline.Dispatch(t.Context(), ev)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}
		if result.Attempted != 1 {
			t.Errorf("Attempted = %d, want 1", result.Attempted)
		}
		if len(transport.sent) != 1 {
			t.Fatalf("送信数 = %d, want 1", len(transport.sent))
		}
		if transport.sent[0].To != "replier@example.com" {
			t.Errorf("宛先 = %q, want %q", transport.sent[0].To, "replier@example.com")
		}
		if !strings.Contains(transport.sent[0].Subject, "採用") {
			t.Errorf("件名 = %q", transport.sent[0].Subject)
		}
	})
}

// TestDispatchPostCreated は新規投稿イベントのファンアウトを検証する。
func TestDispatchPostCreated(t *testing.T) {
	t.Parallel()

	t.Run("カテゴリ購読者全員にメールが送信されること", func(t *testing.T) {
		t.Parallel()
		pipeline, queries, transport := newTestPipeline(t)

		category := createTestCategory(t, queries, "raid")
		for _, name := range []string{"sub1", "sub2", "sub3"} {
			u := createTestUser(t, queries, name, name+"@example.com")
			subscribe(t, queries, u.ID, category.ID)
		}

		ev, err := event.New(event.TypePostCreated, event.PostCreatedData{
			PostID:     "post-1",
			CategoryID: category.ID,
			Title:      "レイド募集",
			Excerpt:    "今週末のレイドメンバーを募集します",
			AuthorID:   "author-1",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		result, err := pipeline.Dispatch(t.Context(), ev)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}
		if result.Attempted != 3 {
			t.Errorf("Attempted = %d, want 3", result.Attempted)
		}
		if len(result.Failed) != 0 {
			t.Errorf("Failed = %d件, want 0", len(result.Failed))
		}
		if len(transport.sent) != 3 {
			t.Errorf("送信数 = %d, want 3", len(transport.sent))
		}
	})

	t.Run("1人への送信失敗が残りの受信者への送信を妨げないこと", func(t *testing.T) {
		t.Parallel()
		pipeline, queries, transport := newTestPipeline(t)

		category := createTestCategory(t, queries, "raid")
		for _, name := range []string{"sub1", "sub2", "sub3", "sub4", "sub5"} {
			u := createTestUser(t, queries, name, name+"@example.com")
			subscribe(t, queries, u.ID, category.ID)
		}
		transport.failTo["sub2@example.com"] = true

		ev, err := event.New(event.TypePostCreated, event.PostCreatedData{
			PostID:     "post-1",
			CategoryID: category.ID,
			Title:      "レイド募集",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		result, err := pipeline.Dispatch(t.Context(), ev)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}
		if result.Attempted != 5 {
			t.Errorf("Attempted = %d, want 5", result.Attempted)
		}
		if len(result.Failed) != 1 {
			t.Fatalf("Failed = %d件, want 1", len(result.Failed))
		}
		if result.Failed[0].Recipient != "sub2@example.com" {
			t.Errorf("失敗した宛先 = %q, want %q", result.Failed[0].Recipient, "sub2@example.com")
		}
		if len(transport.sent) != 4 {
			t.Errorf("送信成功数 = %d, want 4", len(transport.sent))
		}
	})

	t.Run("購読者がいない場合は何も送信されないこと", func(t *testing.T) {
		t.Parallel()
		pipeline, queries, transport := newTestPipeline(t)

		category := createTestCategory(t, queries, "raid")
		ev, err := event.New(event.TypePostCreated, event.PostCreatedData{
			PostID:     "post-1",
			CategoryID: category.ID,
			Title:      "レイド募集",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		result, err := pipeline.Dispatch(t.Context(), ev)
		if err != nil {
			t.Fatalf("Dispatch()でエラーが発生: %v", err)
		}
		if result.Attempted != 0 {
			t.Errorf("Attempted = %d, want 0", result.Attempted)
		}
		if len(transport.sent) != 0 {
			t.Errorf("送信数 = %d, want 0", len(transport.sent))
		}
	})
}

// TestDispatchUnknownType は未知のイベントタイプの扱いを検証する。
func TestDispatchUnknownType(t *testing.T) {
	t.Parallel()

	t.Run("未知のイベントタイプでエラーが返ること", func(t *testing.T) {
		t.Parallel()
		pipeline, _, _ := newTestPipeline(t)

		ev := &event.Event{ID: "ev-1", Type: "unknown.event", Data: []byte("{}")}
		if _, err := pipeline.Dispatch(t.Context(), ev); err == nil {
			t.Fatal("未知のイベントタイプがエラーを返すべき")
		}
	})
}
