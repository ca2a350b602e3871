package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/mmorpgfan/fanboard/internal/notify"
	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/event"
)

// newTestWorker はテスト用のWorkerを構築する。
func newTestWorker(t *testing.T) (*Worker, *store.Queries, *fakeTransport) {
	t.Helper()

	pipeline, queries, transport := newTestPipeline(t)
	worker := NewWorker(pipeline, notify.NewWriter(queries))
	return worker, queries, transport
}

// TestWorkerProcess はイベント処理を検証する。
func TestWorkerProcess(t *testing.T) {
	t.Parallel()

	t.Run("新着返信イベントで投稿者に通知が書き込まれること", func(t *testing.T) {
		t.Parallel()
		worker, queries, transport := newTestWorker(t)

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

		worker.process(t.Context(), ev)

		unread, err := queries.ListUnreadNotifications(t.Context(), author.ID)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 1 {
			t.Fatalf("未読通知数 = %d, want 1", len(unread))
		}
		if !strings.Contains(unread[0].Message, "レイド募集") {
			t.Errorf("通知に投稿タイトルが含まれていない: %q", unread[0].Message)
		}
		if !strings.Contains(unread[0].Message, "alice") {
			t.Errorf("通知に返信者名が含まれていない: %q", unread[0].Message)
		}
		if unread[0].URL != "/posts/post-1" {
			t.Errorf("通知のリンク = %q, want %q", unread[0].URL, "/posts/post-1")
		}
		if len(transport.sent) != 1 {
			t.Errorf("送信数 = %d, want 1", len(transport.sent))
		}
	})

	t.Run("返信採用イベントで返信者に通知が書き込まれること", func(t *testing.T) {
		t.Parallel()
		worker, queries, _ := newTestWorker(t)

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

		worker.process(t.Context(), ev)

		unread, err := queries.ListUnreadNotifications(t.Context(), replier.ID)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 1 {
			t.Fatalf("未読通知数 = %d, want 1", len(unread))
		}
		if !strings.Contains(unread[0].Message, "採用") {
			t.Errorf("通知メッセージ = %q", unread[0].Message)
		}
	})

	t.Run("新規投稿イベントでは通知が書き込まれずメールだけが送信されること", func(t *testing.T) {
		t.Parallel()
		worker, queries, transport := newTestWorker(t)

		category := createTestCategory(t, queries, "raid")
		subscriber := createTestUser(t, queries, "subscriber", "sub@example.com")
		subscribe(t, queries, subscriber.ID, category.ID)

		ev, err := event.New(event.TypePostCreated, event.PostCreatedData{
			PostID:     "post-1",
			CategoryID: category.ID,
			Title:      "レイド募集",
			Excerpt:    "抜粋",
			AuthorID:   "author-1",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		worker.process(t.Context(), ev)

		unread, err := queries.ListUnreadNotifications(t.Context(), subscriber.ID)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 0 {
			t.Errorf("未読通知数 = %d, want 0", len(unread))
		}
		if len(transport.sent) != 1 {
			t.Errorf("送信数 = %d, want 1", len(transport.sent))
		}
	})

	t.Run("メール配信に失敗しても通知は書き込まれること", func(t *testing.T) {
		t.Parallel()
		worker, queries, transport := newTestWorker(t)

		author := createTestUser(t, queries, "author", "author@example.com")
		ev, err := event.New(event.TypeReplyCreated, event.ReplyCreatedData{
			ReplyID:      "reply-1",
			PostID:       "post-1",
			PostTitle:    "レイド募集",
			PostAuthorID: author.ID,
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}

		transport.failTo["author@example.com"] = true
		worker.process(t.Context(), ev)

		unread, err := queries.ListUnreadNotifications(t.Context(), author.ID)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 1 {
			t.Errorf("未読通知数 = %d, want 1", len(unread))
		}
	})
}

// TestWorkerLifecycle はワーカーの起動と停止を検証する。
func TestWorkerLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("Stopがキュー内の残りイベントを処理してから戻ること", func(t *testing.T) {
		t.Parallel()
		worker, queries, transport := newTestWorker(t)

		author := createTestUser(t, queries, "author", "author@example.com")
		for i := 0; i < 3; i++ {
			ev, err := event.New(event.TypeReplyAccepted, event.ReplyAcceptedData{
				ReplyID:       "reply-1",
				ReplyAuthorID: author.ID,
				PostID:        "post-1",
				PostTitle:     "レイド募集",
			})
			if err != nil {
				t.Fatalf("イベントの生成に失敗: %v", err)
			}
			worker.Enqueue(ev)
		}

		worker.Start(context.Background())
		worker.Stop()

		if len(transport.sent) != 3 {
			t.Errorf("送信数 = %d, want 3", len(transport.sent))
		}
	})

	t.Run("ctxのキャンセル後に投入されたイベントも失われないこと", func(t *testing.T) {
		t.Parallel()
		worker, queries, transport := newTestWorker(t)

		author := createTestUser(t, queries, "author", "author@example.com")
		ctx, cancel := context.WithCancel(context.Background())
		worker.Start(ctx)
		cancel()

		ev, err := event.New(event.TypeReplyAccepted, event.ReplyAcceptedData{
			ReplyID:       "reply-1",
			ReplyAuthorID: author.ID,
			PostID:        "post-1",
			PostTitle:     "レイド募集",
		})
		if err != nil {
			t.Fatalf("イベントの生成に失敗: %v", err)
		}
		worker.Enqueue(ev)
		worker.Stop()

		unread, err := queries.ListUnreadNotifications(t.Context(), author.ID)
		if err != nil {
			t.Fatalf("ListUnreadNotifications()でエラーが発生: %v", err)
		}
		if len(unread) != 1 {
			t.Errorf("未読通知数 = %d, want 1", len(unread))
		}
		if len(transport.sent) != 1 {
			t.Errorf("送信数 = %d, want 1", len(transport.sent))
		}
	})
}
