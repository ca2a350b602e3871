package store

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// strict はHTMLタグを全て除去するサニタイズポリシー。
// 投稿本文のプレーンテキスト化に使用する。
var strict = bluemonday.StrictPolicy()

// User は掲示板のユーザーを表す。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// Username はログインに使用するユーザー名。
	Username string `db:"username" json:"username"`
	// Email はメールアドレス。未登録の場合は空文字列。
	Email string `db:"email" json:"email"`
	// PasswordHash はbcryptでハッシュ化されたパスワード。
	PasswordHash string `db:"password_hash" json:"-"`
	// IsAdmin は管理者権限の有無。
	IsAdmin bool `db:"is_admin" json:"is_admin"`
	// IsActive はアカウントの有効状態。
	IsActive bool `db:"is_active" json:"is_active"`
	// CreatedAt は登録日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category は投稿のカテゴリを表す。
type Category struct {
	// ID はカテゴリの一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// Code はカテゴリの一意なコード。
	Code string `db:"code" json:"code"`
	// Title はカテゴリの表示名。
	Title string `db:"title" json:"title"`
}

// Post は掲示板の投稿（募集記事）を表す。
type Post struct {
	// ID は投稿の一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// AuthorID は投稿者のユーザーID。
	AuthorID string `db:"author_id" json:"author_id"`
	// CategoryID は投稿が属するカテゴリのID。
	CategoryID string `db:"category_id" json:"category_id"`
	// Title は投稿のタイトル。
	Title string `db:"title" json:"title"`
	// Body は投稿本文（HTML）。
	Body string `db:"body" json:"body"`
	// Published は公開状態。
	Published bool `db:"published" json:"published"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// excerptLength は抜粋の最大文字数。
const excerptLength = 200

// Excerpt は本文からHTMLタグを除去した抜粋を返す。
// 200文字を超える場合は切り詰めて "..." を付ける。
func (p Post) Excerpt() string {
	text := strings.TrimSpace(html.UnescapeString(strict.Sanitize(p.Body)))
	runes := []rune(text)
	if len(runes) > excerptLength {
		return string(runes[:excerptLength]) + "..."
	}
	return text
}

// Reply は投稿への返信を表す。
type Reply struct {
	// ID は返信の一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// PostID は返信先の投稿ID。
	PostID string `db:"post_id" json:"post_id"`
	// AuthorID は返信者のユーザーID。投稿者自身は返信できない。
	AuthorID string `db:"author_id" json:"author_id"`
	// Text は返信本文。
	Text string `db:"text" json:"text"`
	// Accepted は投稿者が返信を採用したかどうか。
	Accepted bool `db:"accepted" json:"accepted"`
	// Deleted は論理削除フラグ。物理削除は行わない。
	Deleted bool `db:"deleted" json:"deleted"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subscription はユーザーのカテゴリ購読を表す。
// (user_id, category_id) の組で一意。
type Subscription struct {
	// ID は購読の一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// UserID は購読しているユーザーのID。
	UserID string `db:"user_id" json:"user_id"`
	// CategoryID は購読対象のカテゴリID。
	CategoryID string `db:"category_id" json:"category_id"`
	// CreatedAt は購読開始日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewsletterSubscription は週次ダイジェストの購読設定を表す。ユーザーごとに1件。
type NewsletterSubscription struct {
	// UserID はユーザーのID。
	UserID string `db:"user_id" json:"user_id"`
	// Subscribed は購読中かどうか。
	Subscribed bool `db:"subscribed" json:"subscribed"`
	// CreatedAt は設定日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Notification はアプリ内通知を表す。
// パイプラインからは追記のみ行い、既読化は受信者だけが行う。
type Notification struct {
	// ID は通知の一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// UserID は通知先のユーザーID。
	UserID string `db:"user_id" json:"user_id"`
	// Message は通知メッセージ。
	Message string `db:"message" json:"message"`
	// URL は通知に紐づくリンク先。空の場合もある。
	URL string `db:"url" json:"url"`
	// IsRead は既読状態。
	IsRead bool `db:"is_read" json:"is_read"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Newsletter は運営が作成するお知らせメールを表す。
// 送信後にsent=trueへ一方向に遷移する。
type Newsletter struct {
	// ID はお知らせの一意識別子（UUID）。
	ID string `db:"id" json:"id"`
	// Subject はメールの件名。
	Subject string `db:"subject" json:"subject"`
	// Body はメール本文。
	Body string `db:"body" json:"body"`
	// Sent は送信済みかどうか。
	Sent bool `db:"sent" json:"sent"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
