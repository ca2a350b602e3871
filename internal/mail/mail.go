// Package mail はメール送信トランスポートを提供する。
// 1通ずつの送信と、独立した複数通をまとめて送る一括送信の両方をサポートする。
package mail

import "context"

// Message は送信する1通のメールを表す。
// 宛先は常に1人。ファンアウト時も宛先リストを共有せず、受信者ごとに1通ずつ作る。
type Message struct {
	// To は宛先メールアドレス。
	To string
	// Subject は件名。
	Subject string
	// Text はプレーンテキスト本文。
	Text string
	// HTML はHTML本文。空の場合はプレーンテキストのみで送信する。
	HTML string
}

// Transport はメール送信の抽象。SMTP実装のほか、テストでは記録用のフェイクを使う。
type Transport interface {
	// Send は1通のメールを送信する。
	Send(ctx context.Context, msg Message) error
	// SendBatch は複数の独立したメールを1回の接続でまとめて送信する。
	SendBatch(ctx context.Context, msgs []Message) error
}
