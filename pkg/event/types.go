// Package event は掲示板のドメインイベントを定義する。
// イベントはモデルを変更した呼び出し箇所で明示的に生成され、
// ディスパッチワーカーへ受け渡される。保存フックによる暗黙的な発行は行わない。
package event

import (
	"encoding/json"
	"time"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeReplyCreated は投稿に新しい返信が作成されたことを表す。
	// 返信の初回保存時に一度だけ発行される。
	TypeReplyCreated Type = "ReplyCreated"
	// TypeReplyAccepted は返信が未採用から採用済みへ遷移したことを表す。
	// 採用済みの返信を再保存してもこのイベントは発行されない。
	TypeReplyAccepted Type = "ReplyAccepted"
	// TypePostCreated は新しい投稿が作成されたことを表す。
	// カテゴリ購読者へのファンアウト配信のみ行い、アプリ内通知は書き込まない。
	TypePostCreated Type = "PostCreated"
)

// Event はドメインイベントの不変なレコードを表す。
// 返信の論理削除や投稿の編集ではイベントは発行されない。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Type はイベントの種類。
	Type Type `json:"type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが発行された日時。
	CreatedAt time.Time `json:"created_at"`
}

// ReplyCreatedData はReplyCreatedイベントのデータ。
type ReplyCreatedData struct {
	// ReplyID は作成された返信のID。
	ReplyID string `json:"reply_id"`
	// ReplyText は返信本文。
	ReplyText string `json:"reply_text"`
	// ReplyAuthorID は返信者のユーザーID。
	ReplyAuthorID string `json:"reply_author_id"`
	// ReplyAuthorName は返信者のユーザー名。通知メッセージに使用する。
	ReplyAuthorName string `json:"reply_author_name"`
	// PostID は返信先の投稿ID。
	PostID string `json:"post_id"`
	// PostTitle は返信先の投稿タイトル。
	PostTitle string `json:"post_title"`
	// PostAuthorID は投稿者のユーザーID。通知とメールの宛先になる。
	PostAuthorID string `json:"post_author_id"`
}

// ReplyAcceptedData はReplyAcceptedイベントのデータ。
type ReplyAcceptedData struct {
	// ReplyID は採用された返信のID。
	ReplyID string `json:"reply_id"`
	// ReplyAuthorID は返信者のユーザーID。通知とメールの宛先になる。
	ReplyAuthorID string `json:"reply_author_id"`
	// PostID は返信先の投稿ID。
	PostID string `json:"post_id"`
	// PostTitle は返信先の投稿タイトル。
	PostTitle string `json:"post_title"`
}

// PostCreatedData はPostCreatedイベントのデータ。
type PostCreatedData struct {
	// PostID は作成された投稿のID。
	PostID string `json:"post_id"`
	// CategoryID は投稿が属するカテゴリのID。ファンアウト宛先の解決に使用する。
	CategoryID string `json:"category_id"`
	// Title は投稿のタイトル。
	Title string `json:"title"`
	// Excerpt はタグ除去済みの本文抜粋。
	Excerpt string `json:"excerpt"`
	// AuthorID は投稿者のユーザーID。
	AuthorID string `json:"author_id"`
}
