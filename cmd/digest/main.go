// 週次ダイジェストワーカーのエントリポイント。
// 設定されたスケジュール（デフォルトは毎週月曜9時）で直近7日間の
// 新着投稿をまとめたメールを購読者へ送信する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

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

	loc, err := time.LoadLocation(cfg.Digest.Timezone)
	if err != nil {
		log.Fatalf("タイムゾーンの読み込みに失敗: %v", err)
	}

	scheduler := cron.New(cron.WithLocation(loc))
	_, err = scheduler.AddFunc(cfg.Digest.Cron, func() {
		result, err := dig.RunWeekly(context.Background())
		if err != nil {
			log.Printf("週次ダイジェストの実行に失敗: %v", err)
			return
		}
		if result.NothingToSend {
			return
		}
		log.Printf("週次ダイジェストを実行: posts=%d, attempted=%d, failed=%d",
			result.Posts, result.Attempted, len(result.Failed))
	})
	if err != nil {
		log.Fatalf("スケジュールの登録に失敗: %v", err)
	}

	log.Printf("ダイジェストワーカーを起動します: schedule=%q, timezone=%s", cfg.Digest.Cron, cfg.Digest.Timezone)
	scheduler.Start()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Println("ダイジェストワーカーを停止します")
	<-scheduler.Stop().Done()
}
