// Package dispatch はドメインイベントからメール配信への変換パイプラインを提供する。
// イベントごとに宛先を解決し、テンプレートをレンダリングし、
// 受信者ごとに1通ずつメールトランスポートへ渡す。
package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/mmorpgfan/fanboard/internal/mail"
	"github.com/mmorpgfan/fanboard/internal/mailtmpl"
	"github.com/mmorpgfan/fanboard/internal/store"
	"github.com/mmorpgfan/fanboard/pkg/event"
)

// SendFailure は1人の受信者への送信失敗を表す。
type SendFailure struct {
	// Recipient は送信に失敗した宛先メールアドレス。
	Recipient string
	// Err は失敗の原因。
	Err error
}

// Result は1つのイベントに対する配信結果。
type Result struct {
	// Attempted は送信を試行した受信者数。
	Attempted int
	// Failed は送信に失敗した受信者の一覧。
	// 一部の失敗は残りの受信者への送信を妨げない。
	Failed []SendFailure
}

// Pipeline はイベントをメール配信へ変換するパイプライン。
// 再試行は行わない。失敗は記録されるだけで、イベントの発生元には一切伝わらない。
type Pipeline struct {
	// queries は宛先解決に使用するクエリ実行オブジェクト。
	queries *store.Queries
	// transport はメール送信トランスポート。
	transport mail.Transport
	// renderer はメールテンプレートのレンダラー。
	renderer *mailtmpl.Renderer
}

// NewPipeline は新しいPipelineを生成する。
func NewPipeline(queries *store.Queries, transport mail.Transport, renderer *mailtmpl.Renderer) *Pipeline {
	return &Pipeline{
		queries:   queries,
		transport: transport,
		renderer:  renderer,
	}
}

// Dispatch はイベントの宛先を解決してメールを配信する。
// 宛先が存在しない場合はエラーではなく空のResultを返す。
// 受信者単位の送信失敗はResult.Failedに記録し、処理は継続する。
func (p *Pipeline) Dispatch(ctx context.Context, ev *event.Event) (Result, error) {
	switch ev.Type {
	case event.TypeReplyCreated:
		return p.dispatchReplyCreated(ctx, ev)
	case event.TypeReplyAccepted:
		return p.dispatchReplyAccepted(ctx, ev)
	case event.TypePostCreated:
		return p.dispatchPostCreated(ctx, ev)
	default:
		return Result{}, fmt.Errorf("未知のイベントタイプ: %s", ev.Type)
	}
}

// dispatchReplyCreated は投稿者1人へ新着返信メールを送信する。
func (p *Pipeline) dispatchReplyCreated(ctx context.Context, ev *event.Event) (Result, error) {
	data, err := event.DecodeData[event.ReplyCreatedData](ev)
	if err != nil {
		return Result{}, err
	}

	author, err := p.queries.GetUserByID(ctx, data.PostAuthorID)
	if err != nil {
		return Result{}, fmt.Errorf("投稿者の取得に失敗: %w", err)
	}
	if author.Email == "" {
		return Result{}, nil
	}

	htmlBody, textBody, err := p.renderer.Render(mailtmpl.TemplateNewReply, mailtmpl.NewReplyData{
		PostTitle:   data.PostTitle,
		ReplyAuthor: data.ReplyAuthorName,
		ReplyText:   data.ReplyText,
		PostURL:     p.renderer.PostURL(data.PostID),
	})
	if err != nil {
		return Result{}, err
	}

	subject := fmt.Sprintf("新しい返信が届きました: %s", data.PostTitle)
	return p.send(ctx, []string{author.Email}, subject, textBody, htmlBody), nil
}

// dispatchReplyAccepted は返信者1人へ返信採用メールを送信する。
func (p *Pipeline) dispatchReplyAccepted(ctx context.Context, ev *event.Event) (Result, error) {
	data, err := event.DecodeData[event.ReplyAcceptedData](ev)
	if err != nil {
		return Result{}, err
	}

	author, err := p.queries.GetUserByID(ctx, data.ReplyAuthorID)
	if err != nil {
		return Result{}, fmt.Errorf("返信者の取得に失敗: %w", err)
	}
	if author.Email == "" {
		return Result{}, nil
	}

	htmlBody, textBody, err := p.renderer.Render(mailtmpl.TemplateReplyAccepted, mailtmpl.ReplyAcceptedData{
		PostTitle: data.PostTitle,
		PostURL:   p.renderer.PostURL(data.PostID),
	})
	if err != nil {
		return Result{}, err
	}

	subject := fmt.Sprintf("あなたの返信が採用されました: %s", data.PostTitle)
	return p.send(ctx, []string{author.Email}, subject, textBody, htmlBody), nil
}

// dispatchPostCreated はカテゴリ購読者全員へ新着投稿メールをファンアウトする。
// 宛先は投稿作成時点の購読者であり、後から購読したユーザーには送られない。
func (p *Pipeline) dispatchPostCreated(ctx context.Context, ev *event.Event) (Result, error) {
	data, err := event.DecodeData[event.PostCreatedData](ev)
	if err != nil {
		return Result{}, err
	}

	subscribers, err := p.queries.ListCategorySubscribers(ctx, data.CategoryID)
	if err != nil {
		return Result{}, fmt.Errorf("購読者の取得に失敗: %w", err)
	}
	if len(subscribers) == 0 {
		return Result{}, nil
	}

	htmlBody, textBody, err := p.renderer.Render(mailtmpl.TemplateNewPost, mailtmpl.NewPostData{
		PostTitle: data.Title,
		Excerpt:   data.Excerpt,
		PostURL:   p.renderer.PostURL(data.PostID),
	})
	if err != nil {
		return Result{}, err
	}

	recipients := make([]string, 0, len(subscribers))
	for _, s := range subscribers {
		recipients = append(recipients, s.Email)
	}

	subject := fmt.Sprintf("購読カテゴリに新しい投稿: %s", data.Title)
	return p.send(ctx, recipients, subject, textBody, htmlBody), nil
}

// send は受信者ごとに1通ずつメールを送信する。
// 1人への送信失敗は記録するだけで、残りの受信者への送信は継続する。
func (p *Pipeline) send(ctx context.Context, recipients []string, subject, textBody, htmlBody string) Result {
	result := Result{}
	for _, to := range recipients {
		result.Attempted++
		err := p.transport.Send(ctx, mail.Message{
			To:      to,
			Subject: subject,
			Text:    textBody,
			HTML:    htmlBody,
		})
		if err != nil {
			log.Printf("[Dispatch] メール送信に失敗: to=%s, error=%v", to, err)
			result.Failed = append(result.Failed, SendFailure{Recipient: to, Err: err})
		}
	}
	return result
}
