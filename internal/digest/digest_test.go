package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mmorpgfan/fanboard/internal/mail"
	"github.com/mmorpgfan/fanboard/internal/mailtmpl"
	"github.com/mmorpgfan/fanboard/internal/store"
)

// fakeTransport は送信内容を記録するテスト用のメールトランスポート。
// failToに登録した宛先への送信は失敗させる。
type fakeTransport struct {
	sent       []mail.Message
	batchCalls int
	failTo     map[string]bool
}

func (f *fakeTransport) Send(_ context.Context, msg mail.Message) error {
	if f.failTo[msg.To] {
		return errors.New("送信失敗")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) SendBatch(ctx context.Context, msgs []mail.Message) error {
	f.batchCalls++
	for _, msg := range msgs {
		if err := f.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// newTestDigest はテスト用のインメモリSQLiteでDigestを構築する。
func newTestDigest(t *testing.T) (*Digest, *store.Queries, *fakeTransport) {
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
	return New(queries, transport, renderer), queries, transport
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

// subscribeDigest はテスト用に週次ダイジェストの購読設定を挿入するヘルパー関数。
func subscribeDigest(t *testing.T, queries *store.Queries, userID string, subscribed bool) {
	t.Helper()

	err := queries.UpsertNewsletterSubscription(t.Context(), store.UpsertNewsletterSubscriptionParams{
		UserID:     userID,
		Subscribed: subscribed,
	})
	if err != nil {
		t.Fatalf("テスト用購読設定の作成に失敗: %v", err)
	}
}

// createTestPost はテスト用に投稿をDBに直接挿入するヘルパー関数。
func createTestPost(t *testing.T, queries *store.Queries, authorID, title string) store.Post {
	t.Helper()

	categoryID := uuid.New().String()
	err := queries.CreateCategory(t.Context(), store.CreateCategoryParams{
		ID:    categoryID,
		Code:  categoryID,
		Title: "カテゴリ",
	})
	if err != nil {
		t.Fatalf("テスト用カテゴリの作成に失敗: %v", err)
	}

	id := uuid.New().String()
	err = queries.CreatePost(t.Context(), store.CreatePostParams{
		ID:         id,
		AuthorID:   authorID,
		CategoryID: categoryID,
		Title:      title,
		Body:       "<p>" + title + "の本文</p>",
	})
	if err != nil {
		t.Fatalf("テスト用投稿の作成に失敗: %v", err)
	}
	post, err := queries.GetPostByID(t.Context(), id)
	if err != nil {
		t.Fatalf("テスト用投稿の取得に失敗: %v", err)
	}
	return post
}

// createTestNewsletter はテスト用にお知らせをDBに直接挿入するヘルパー関数。
func createTestNewsletter(t *testing.T, queries *store.Queries, subject string) store.Newsletter {
	t.Helper()

	id := uuid.New().String()
	err := queries.CreateNewsletter(t.Context(), store.CreateNewsletterParams{
		ID:      id,
		Subject: subject,
		Body:    "<p>本文</p>",
	})
	if err != nil {
		t.Fatalf("テスト用お知らせの作成に失敗: %v", err)
	}
	newsletter, err := queries.GetNewsletterByID(t.Context(), id)
	if err != nil {
		t.Fatalf("テスト用お知らせの取得に失敗: %v", err)
	}
	return newsletter
}

// TestRunWeekly は週次ダイジェストの実行を検証する。
func TestRunWeekly(t *testing.T) {
	t.Parallel()

	t.Run("直近1週間の投稿が購読者全員に送信されること", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		author := createTestUser(t, queries, "author", "")
		for _, title := range []string{"投稿A", "投稿B", "投稿C"} {
			createTestPost(t, queries, author.ID, title)
		}
		for _, name := range []string{"sub1", "sub2"} {
			u := createTestUser(t, queries, name, name+"@example.com")
			subscribeDigest(t, queries, u.ID, true)
		}

		result, err := dig.RunWeekly(t.Context())
		if err != nil {
			t.Fatalf("RunWeekly()でエラーが発生: %v", err)
		}
		if result.NothingToSend {
			t.Fatal("投稿があるのにNothingToSendになっている")
		}
		if result.Posts != 3 {
			t.Errorf("Posts = %d, want 3", result.Posts)
		}
		if result.Attempted != 2 {
			t.Errorf("Attempted = %d, want 2", result.Attempted)
		}
		if len(transport.sent) != 2 {
			t.Fatalf("送信数 = %d, want 2", len(transport.sent))
		}
		for _, title := range []string{"投稿A", "投稿B", "投稿C"} {
			if !strings.Contains(transport.sent[0].HTML, title) {
				t.Errorf("ダイジェスト本文に %q が含まれていない", title)
			}
		}
	})

	t.Run("期間内に投稿が無い場合は何も送信しないこと", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		u := createTestUser(t, queries, "sub1", "sub1@example.com")
		subscribeDigest(t, queries, u.ID, true)

		result, err := dig.RunWeekly(t.Context())
		if err != nil {
			t.Fatalf("RunWeekly()でエラーが発生: %v", err)
		}
		if !result.NothingToSend {
			t.Error("投稿が無いのにNothingToSendになっていない")
		}
		if len(transport.sent) != 0 {
			t.Errorf("送信数 = %d, want 0", len(transport.sent))
		}
	})

	t.Run("1週間より古い投稿が対象にならないこと", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		author := createTestUser(t, queries, "author", "")
		createTestPost(t, queries, author.ID, "古い投稿")
		u := createTestUser(t, queries, "sub1", "sub1@example.com")
		subscribeDigest(t, queries, u.ID, true)

		// 現在時刻を8日後に進めると、作成した投稿は期間外になる
		dig.now = func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) }

		result, err := dig.RunWeekly(t.Context())
		if err != nil {
			t.Fatalf("RunWeekly()でエラーが発生: %v", err)
		}
		if !result.NothingToSend {
			t.Error("期間外の投稿しか無いのにNothingToSendになっていない")
		}
		if len(transport.sent) != 0 {
			t.Errorf("送信数 = %d, want 0", len(transport.sent))
		}
	})

	t.Run("購読していないユーザーには送信されないこと", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		author := createTestUser(t, queries, "author", "")
		createTestPost(t, queries, author.ID, "投稿A")

		subscribed := createTestUser(t, queries, "subscribed", "sub@example.com")
		subscribeDigest(t, queries, subscribed.ID, true)
		optedOut := createTestUser(t, queries, "opted-out", "out@example.com")
		subscribeDigest(t, queries, optedOut.ID, false)
		createTestUser(t, queries, "no-setting", "none@example.com")

		result, err := dig.RunWeekly(t.Context())
		if err != nil {
			t.Fatalf("RunWeekly()でエラーが発生: %v", err)
		}
		if result.Attempted != 1 {
			t.Errorf("Attempted = %d, want 1", result.Attempted)
		}
		if len(transport.sent) != 1 {
			t.Fatalf("送信数 = %d, want 1", len(transport.sent))
		}
		if transport.sent[0].To != "sub@example.com" {
			t.Errorf("宛先 = %q, want %q", transport.sent[0].To, "sub@example.com")
		}
	})

	t.Run("1人への送信失敗が残りの購読者への送信を妨げないこと", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		author := createTestUser(t, queries, "author", "")
		createTestPost(t, queries, author.ID, "投稿A")
		for _, name := range []string{"sub1", "sub2", "sub3"} {
			u := createTestUser(t, queries, name, name+"@example.com")
			subscribeDigest(t, queries, u.ID, true)
		}
		transport.failTo["sub1@example.com"] = true

		result, err := dig.RunWeekly(t.Context())
		if err != nil {
			t.Fatalf("RunWeekly()でエラーが発生: %v", err)
		}
		if result.Attempted != 3 {
			t.Errorf("Attempted = %d, want 3", result.Attempted)
		}
		if len(result.Failed) != 1 {
			t.Fatalf("Failed = %d件, want 1", len(result.Failed))
		}
		if len(transport.sent) != 2 {
			t.Errorf("送信成功数 = %d, want 2", len(transport.sent))
		}
	})
}

// TestSendOne はお知らせの個別送信を検証する。
func TestSendOne(t *testing.T) {
	t.Parallel()

	t.Run("全アクティブユーザーに一括送信され送信済みになること", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		// ダイジェスト購読設定に関わらず全員が宛先になる
		u1 := createTestUser(t, queries, "user1", "user1@example.com")
		subscribeDigest(t, queries, u1.ID, false)
		createTestUser(t, queries, "user2", "user2@example.com")
		createTestUser(t, queries, "no-email", "")

		n := createTestNewsletter(t, queries, "メンテナンスのお知らせ")

		result, err := dig.SendOne(t.Context(), n.ID)
		if err != nil {
			t.Fatalf("SendOne()でエラーが発生: %v", err)
		}
		if result.Recipients != 2 {
			t.Errorf("Recipients = %d, want 2", result.Recipients)
		}
		if transport.batchCalls != 1 {
			t.Errorf("一括送信の呼び出し回数 = %d, want 1", transport.batchCalls)
		}

		updated, err := queries.GetNewsletterByID(t.Context(), n.ID)
		if err != nil {
			t.Fatalf("GetNewsletterByID()でエラーが発生: %v", err)
		}
		if !updated.Sent {
			t.Error("送信済みフラグが立っていない")
		}
	})

	t.Run("送信済みのお知らせは再送されないこと", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		createTestUser(t, queries, "user1", "user1@example.com")
		n := createTestNewsletter(t, queries, "お知らせ")

		if _, err := dig.SendOne(t.Context(), n.ID); err != nil {
			t.Fatalf("1回目のSendOne()でエラーが発生: %v", err)
		}

		result, err := dig.SendOne(t.Context(), n.ID)
		if err != nil {
			t.Fatalf("2回目のSendOne()でエラーが発生: %v", err)
		}
		if !result.AlreadySent {
			t.Error("送信済みフラグが検出されていない")
		}
		if len(transport.sent) != 1 {
			t.Errorf("送信数 = %d, want 1", len(transport.sent))
		}
	})

	t.Run("送信に失敗した場合は送信済みにならないこと", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		createTestUser(t, queries, "user1", "user1@example.com")
		transport.failTo["user1@example.com"] = true
		n := createTestNewsletter(t, queries, "お知らせ")

		if _, err := dig.SendOne(t.Context(), n.ID); err == nil {
			t.Fatal("一括送信の失敗がエラーを返すべき")
		}

		updated, err := queries.GetNewsletterByID(t.Context(), n.ID)
		if err != nil {
			t.Fatalf("GetNewsletterByID()でエラーが発生: %v", err)
		}
		if updated.Sent {
			t.Error("送信に失敗したのに送信済みになっている")
		}
	})
}

// TestSendPending は未送信お知らせの一括処理を検証する。
func TestSendPending(t *testing.T) {
	t.Parallel()

	t.Run("未送信のお知らせがすべて送信されること", func(t *testing.T) {
		t.Parallel()
		dig, queries, transport := newTestDigest(t)

		createTestUser(t, queries, "user1", "user1@example.com")
		createTestNewsletter(t, queries, "お知らせ1")
		createTestNewsletter(t, queries, "お知らせ2")

		result, err := dig.SendPending(t.Context())
		if err != nil {
			t.Fatalf("SendPending()でエラーが発生: %v", err)
		}
		if result.Sent != 2 {
			t.Errorf("Sent = %d, want 2", result.Sent)
		}
		if len(transport.sent) != 2 {
			t.Errorf("送信数 = %d, want 2", len(transport.sent))
		}

		unsent, err := queries.ListUnsentNewsletters(t.Context())
		if err != nil {
			t.Fatalf("ListUnsentNewsletters()でエラーが発生: %v", err)
		}
		if len(unsent) != 0 {
			t.Errorf("未送信数 = %d, want 0", len(unsent))
		}
	})

	t.Run("未送信が無い場合は何もしないこと", func(t *testing.T) {
		t.Parallel()
		dig, _, transport := newTestDigest(t)

		result, err := dig.SendPending(t.Context())
		if err != nil {
			t.Fatalf("SendPending()でエラーが発生: %v", err)
		}
		if result.Sent != 0 {
			t.Errorf("Sent = %d, want 0", result.Sent)
		}
		if len(transport.sent) != 0 {
			t.Errorf("送信数 = %d, want 0", len(transport.sent))
		}
	})
}
