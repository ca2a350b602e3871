// Package mailtmpl はメール本文のテンプレートレンダリングを提供する。
// HTML本文を生成し、プレーンテキスト本文はHTMLからタグを除去して導出する。
// テキスト用に別テンプレートを再レンダリングすることはしない。
package mailtmpl

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// テンプレート名。
const (
	// TemplateNewReply は新着返信メールのテンプレート。
	TemplateNewReply = "new_reply.html"
	// TemplateReplyAccepted は返信採用メールのテンプレート。
	TemplateReplyAccepted = "reply_accepted.html"
	// TemplateNewPost はカテゴリ購読者向け新着投稿メールのテンプレート。
	TemplateNewPost = "new_post.html"
	// TemplateWeeklyDigest は週次ダイジェストメールのテンプレート。
	TemplateWeeklyDigest = "weekly_digest.html"
	// TemplateNewsletter は運営お知らせメールのテンプレート。
	TemplateNewsletter = "newsletter.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// strict はHTMLタグを全て除去するサニタイズポリシー。
var strict = bluemonday.StrictPolicy()

// blankLines は3行以上連続する空行にマッチする。
var blankLines = regexp.MustCompile(`\n{3,}`)

// NewReplyData は新着返信メールのテンプレートデータ。
type NewReplyData struct {
	// PostTitle は返信先の投稿タイトル。
	PostTitle string
	// ReplyAuthor は返信者のユーザー名。
	ReplyAuthor string
	// ReplyText は返信本文。
	ReplyText string
	// PostURL は投稿ページへのリンク。
	PostURL string
}

// ReplyAcceptedData は返信採用メールのテンプレートデータ。
type ReplyAcceptedData struct {
	// PostTitle は返信先の投稿タイトル。
	PostTitle string
	// PostURL は投稿ページへのリンク。
	PostURL string
}

// NewPostData は新着投稿メールのテンプレートデータ。
type NewPostData struct {
	// PostTitle は投稿のタイトル。
	PostTitle string
	// Excerpt はタグ除去済みの本文抜粋。
	Excerpt string
	// PostURL は投稿ページへのリンク。
	PostURL string
}

// DigestPost は週次ダイジェストに掲載する1件の投稿。
type DigestPost struct {
	// Title は投稿のタイトル。
	Title string
	// Excerpt はタグ除去済みの本文抜粋。
	Excerpt string
	// URL は投稿ページへのリンク。
	URL string
}

// WeeklyDigestData は週次ダイジェストメールのテンプレートデータ。
type WeeklyDigestData struct {
	// Posts は直近1週間に作成された投稿の一覧。
	Posts []DigestPost
}

// NewsletterData は運営お知らせメールのテンプレートデータ。
type NewsletterData struct {
	// Subject はお知らせの件名。
	Subject string
	// Body はお知らせ本文（HTML）。
	Body template.HTML
}

// Renderer はメールテンプレートのレンダラー。
type Renderer struct {
	// tmpl はパース済みのテンプレートセット。
	tmpl *template.Template
	// siteURL はリンク生成に使用するサイトのベースURL。
	siteURL string
}

// New は埋め込みテンプレートをパースして新しいRendererを生成する。
func New(siteURL string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("メールテンプレートのパースに失敗: %w", err)
	}
	return &Renderer{
		tmpl:    tmpl,
		siteURL: strings.TrimRight(siteURL, "/"),
	}, nil
}

// PostURL は投稿ページへの絶対URLを返す。
func (r *Renderer) PostURL(postID string) string {
	return r.siteURL + "/posts/" + postID
}

// Render は指定テンプレートでHTML本文を生成し、
// タグを除去したプレーンテキスト本文とあわせて返す。
func (r *Renderer) Render(name string, data any) (htmlBody, textBody string, err error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("テンプレート %s のレンダリングに失敗: %w", name, err)
	}
	htmlBody = buf.String()
	return htmlBody, StripTags(htmlBody), nil
}

// StripTags はHTMLからタグを除去してプレーンテキストを返す。
func StripTags(s string) string {
	text := html.UnescapeString(strict.Sanitize(s))
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
