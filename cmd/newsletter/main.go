// お知らせ送信コマンドのエントリポイント。
// 未送信のお知らせをすべて送信して終了するワンショットコマンドで、
// 運用者が手動またはジョブスケジューラから実行する。
package main

import (
	"context"
	"log"
	"os"

	"github.com/mmorpgfan/fanboard/internal/config"
	"github.com/mmorpgfan/fanboard/internal/digest"
	"github.com/mmorpgfan/fanboard/internal/mail"
	"github.com/mmorpgfan/fanboard/internal/mailtmpl"
	"github.com/mmorpgfan/fanboard/internal/store"
)

func main() {
	cfg, err := config.Load(os.Getenv("FANBOARD_CONFIG"))
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("データベースの初期化に失敗: %v", err)
	}
	defer db.Close()
	queries := store.New(db)

	renderer, err := mailtmpl.New(cfg.SiteURL)
	if err != nil {
		log.Fatalf("メールテンプレートの初期化に失敗: %v", err)
	}
	transport := mail.NewSMTPTransport(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	dig := digest.New(queries, transport, renderer)

	result, err := dig.SendPending(context.Background())
	if err != nil {
		log.Fatalf("お知らせの送信に失敗: %v", err)
	}
	if result.Sent == 0 {
		log.Println("未送信のお知らせはありません")
		return
	}
	log.Printf("お知らせを送信しました: count=%d", result.Sent)
}
