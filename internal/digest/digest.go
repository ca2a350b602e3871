// Package digest は週次ダイジェストとお知らせメールの送信を提供する。
// 週次ダイジェストはスケジューラから、お知らせは管理者操作または
// ワンショットコマンドから起動される。
package digest

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/mmorpgfan/fanboard/internal/mail"
	"github.com/mmorpgfan/fanboard/internal/mailtmpl"
	"github.com/mmorpgfan/fanboard/internal/store"
)

// digestWindow は週次ダイジェストが対象とする期間。
const digestWindow = 7 * 24 * time.Hour

// SendFailure は1人の受信者への送信失敗を表す。
type SendFailure struct {
	// Recipient は送信に失敗した宛先メールアドレス。
	Recipient string
	// Err は失敗の原因。
	Err error
}

// WeeklyResult は週次ダイジェスト実行の結果。
type WeeklyResult struct {
	// Posts は対象期間内の投稿数。
	Posts int
	// Attempted は送信を試行した受信者数。
	Attempted int
	// Failed は送信に失敗した受信者の一覧。
	Failed []SendFailure
	// NothingToSend は対象期間に投稿が1件もなく送信を省略した場合にtrue。
	NothingToSend bool
}

// NewsletterResult はお知らせ送信の結果。
type NewsletterResult struct {
	// Sent は今回送信したお知らせの件数。
	Sent int
	// Recipients は各お知らせの宛先数。
	Recipients int
	// AlreadySent は送信済みのため何もしなかった場合にtrue。
	AlreadySent bool
}

// Digest は定期メールの送信処理をまとめたもの。
type Digest struct {
	// queries はデータベースへのクエリ実行オブジェクト。
	queries *store.Queries
	// transport はメール送信トランスポート。
	transport mail.Transport
	// renderer はメールテンプレートのレンダラー。
	renderer *mailtmpl.Renderer
	// now は現在時刻を返す関数。テストで差し替える。
	now func() time.Time
}

// New は新しいDigestを生成する。
func New(queries *store.Queries, transport mail.Transport, renderer *mailtmpl.Renderer) *Digest {
	return &Digest{
		queries:   queries,
		transport: transport,
		renderer:  renderer,
		now:       time.Now,
	}
}

// RunWeekly は直近7日間の新着投稿をまとめた週次ダイジェストを
// 購読者へ送信する。対象期間に投稿が1件もなければ何も送信しない。
// 受信者単位の送信失敗は記録するだけで、残りの受信者への送信は継続する。
func (d *Digest) RunWeekly(ctx context.Context) (WeeklyResult, error) {
	since := d.now().Add(-digestWindow)
	posts, err := d.queries.ListPostsSince(ctx, since)
	if err != nil {
		return WeeklyResult{}, fmt.Errorf("新着投稿の取得に失敗: %w", err)
	}
	if len(posts) == 0 {
		log.Println("[Digest] 対象期間に新着投稿がないため送信をスキップします")
		return WeeklyResult{NothingToSend: true}, nil
	}

	recipients, err := d.queries.ListDigestRecipients(ctx)
	if err != nil {
		return WeeklyResult{}, fmt.Errorf("購読者の取得に失敗: %w", err)
	}

	items := make([]mailtmpl.DigestPost, 0, len(posts))
	for _, p := range posts {
		items = append(items, mailtmpl.DigestPost{
			Title:   p.Title,
			Excerpt: p.Excerpt(),
			URL:     d.renderer.PostURL(p.ID),
		})
	}
	htmlBody, textBody, err := d.renderer.Render(mailtmpl.TemplateWeeklyDigest, mailtmpl.WeeklyDigestData{Posts: items})
	if err != nil {
		return WeeklyResult{}, err
	}

	result := WeeklyResult{Posts: len(posts)}
	subject := fmt.Sprintf("今週の新着投稿まとめ（%d件）", len(posts))
	for _, u := range recipients {
		result.Attempted++
		err := d.transport.Send(ctx, mail.Message{
			To:      u.Email,
			Subject: subject,
			Text:    textBody,
			HTML:    htmlBody,
		})
		if err != nil {
			log.Printf("[Digest] ダイジェスト送信に失敗: to=%s, error=%v", u.Email, err)
			result.Failed = append(result.Failed, SendFailure{Recipient: u.Email, Err: err})
		}
	}
	log.Printf("[Digest] 週次ダイジェストを送信: posts=%d, attempted=%d, failed=%d",
		result.Posts, result.Attempted, len(result.Failed))
	return result, nil
}

// SendPending は未送信のお知らせをすべて送信する。
// 宛先はメールアドレスを持つ全アクティブユーザーであり、
// ダイジェストの購読設定は参照しない。
// 送信済みマークは送信の後に行うため、配信はat-least-onceとなる。
func (d *Digest) SendPending(ctx context.Context) (NewsletterResult, error) {
	newsletters, err := d.queries.ListUnsentNewsletters(ctx)
	if err != nil {
		return NewsletterResult{}, fmt.Errorf("未送信お知らせの取得に失敗: %w", err)
	}

	result := NewsletterResult{}
	for _, n := range newsletters {
		recipients, err := d.sendNewsletter(ctx, n)
		if err != nil {
			return result, err
		}
		result.Sent++
		result.Recipients = recipients
	}
	return result, nil
}

// SendOne は指定されたお知らせを送信する。
// すでに送信済みの場合は何もしない。
func (d *Digest) SendOne(ctx context.Context, id string) (NewsletterResult, error) {
	n, err := d.queries.GetNewsletterByID(ctx, id)
	if err != nil {
		return NewsletterResult{}, err
	}
	if n.Sent {
		return NewsletterResult{AlreadySent: true}, nil
	}

	recipients, err := d.sendNewsletter(ctx, n)
	if err != nil {
		return NewsletterResult{}, err
	}
	return NewsletterResult{Sent: 1, Recipients: recipients}, nil
}

// sendNewsletter は1件のお知らせを全宛先へ一括送信し、送信済みにする。
func (d *Digest) sendNewsletter(ctx context.Context, n store.Newsletter) (int, error) {
	recipients, err := d.queries.ListActiveUsersWithEmail(ctx)
	if err != nil {
		return 0, fmt.Errorf("宛先の取得に失敗: %w", err)
	}

	htmlBody, textBody, err := d.renderer.Render(mailtmpl.TemplateNewsletter, mailtmpl.NewsletterData{
		Subject: n.Subject,
		Body:    template.HTML(n.Body),
	})
	if err != nil {
		return 0, err
	}

	msgs := make([]mail.Message, 0, len(recipients))
	for _, u := range recipients {
		msgs = append(msgs, mail.Message{
			To:      u.Email,
			Subject: n.Subject,
			Text:    textBody,
			HTML:    htmlBody,
		})
	}
	if err := d.transport.SendBatch(ctx, msgs); err != nil {
		return 0, fmt.Errorf("お知らせの送信に失敗: %w", err)
	}

	if err := d.queries.MarkNewsletterSent(ctx, n.ID); err != nil {
		return 0, err
	}
	log.Printf("[Digest] お知らせを送信: id=%s, recipients=%d", n.ID, len(msgs))
	return len(msgs), nil
}
