// ファンボードAPIサーバーのエントリポイント。
// HTTP APIと、投稿・返信イベントを通知とメールに変換する
// 非同期ワーカーを起動する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmorpgfan/fanboard/internal/config"
	"github.com/mmorpgfan/fanboard/internal/digest"
	"github.com/mmorpgfan/fanboard/internal/dispatch"
	"github.com/mmorpgfan/fanboard/internal/mail"
	"github.com/mmorpgfan/fanboard/internal/mailtmpl"
	"github.com/mmorpgfan/fanboard/internal/notify"
	"github.com/mmorpgfan/fanboard/internal/server"
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

	pipeline := dispatch.NewPipeline(queries, transport, renderer)
	writer := notify.NewWriter(queries)
	worker := dispatch.NewWorker(pipeline, writer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	worker.Start(ctx)

	dig := digest.New(queries, transport, renderer)

	srv := server.NewServer(cfg, db, queries, worker, dig)
	log.Printf("ファンボードAPIサーバーを起動します: :%s", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("APIサーバーの起動に失敗: %v", err)
	}

	// 新規リクエストの受け付けが止まってからワーカーを停止し、
	// キューに残ったイベントを処理しきる
	worker.Stop()
	log.Println("シャットダウンが完了しました")
}
