package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Config はSMTPトランスポートの設定。
type Config struct {
	// Host はSMTPサーバーのホスト名。
	Host string
	// Port はSMTPサーバーのポート番号。
	Port int
	// Username はSMTP認証のユーザー名。空の場合は認証なしで接続する。
	Username string
	// Password はSMTP認証のパスワード。
	Password string
	// From は送信元メールアドレス。
	From string
}

// SMTPTransport はSMTP経由でメールを送信するTransport実装。
type SMTPTransport struct {
	// cfg はSMTP接続の設定。
	cfg Config
}

// コンパイル時のインターフェース実装チェック。
var _ Transport = (*SMTPTransport)(nil)

// NewSMTPTransport は新しいSMTPトランスポートを生成する。
func NewSMTPTransport(cfg Config) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Send は1通のメールをSMTPで送信する。
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	return t.SendBatch(ctx, []Message{msg})
}

// SendBatch は複数の独立したメールを1回のSMTP接続でまとめて送信する。
func (t *SMTPTransport) SendBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	built := make([]*gomail.Msg, 0, len(msgs))
	for _, msg := range msgs {
		m, err := t.build(msg)
		if err != nil {
			return err
		}
		built = append(built, m)
	}

	client, err := t.newClient()
	if err != nil {
		return fmt.Errorf("SMTPクライアントの生成に失敗: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, built...); err != nil {
		return fmt.Errorf("メールの送信に失敗: %w", err)
	}
	return nil
}

// build はMessageをgo-mailのメッセージに変換する。
// プレーンテキストを本文とし、HTMLをalternativeとして添付する。
func (t *SMTPTransport) build(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(t.cfg.From); err != nil {
		return nil, fmt.Errorf("送信元アドレスが不正: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("宛先アドレスが不正: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// newClient はSMTPクライアントを生成する。
func (t *SMTPTransport) newClient() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(t.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.cfg.Username),
			gomail.WithPassword(t.cfg.Password),
		)
	}
	return gomail.NewClient(t.cfg.Host, opts...)
}
