package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/mmorpgfan/fanboard/internal/notify"
	"github.com/mmorpgfan/fanboard/pkg/event"
)

// queueSize はイベントキューのバッファサイズ。
const queueSize = 256

// Worker はイベントキューを購読し、通知の書き込みとメール配信を
// 非同期に実行するワーカー。イベントを発生させたリクエストは
// ここでの成否に一切影響を受けない。
type Worker struct {
	// queue は処理待ちイベントのキュー。
	queue chan *event.Event
	// pipeline はメール配信パイプライン。
	pipeline *Pipeline
	// writer はアプリ内通知の書き込み先。
	writer *notify.Writer
	// done はワーカーゴルーチンの終了通知チャネル。
	done chan struct{}
}

// NewWorker は新しいWorkerを生成する。
func NewWorker(pipeline *Pipeline, writer *notify.Writer) *Worker {
	return &Worker{
		queue:    make(chan *event.Event, queueSize),
		pipeline: pipeline,
		writer:   writer,
		done:     make(chan struct{}),
	}
}

// Enqueue はイベントをキューへ追加する。
// キューが満杯の場合は空きが出るまでブロックする。
func (w *Worker) Enqueue(ev *event.Event) {
	w.queue <- ev
}

// Start はワーカーゴルーチンを起動する。
// ctxのキャンセルでは停止しない。シャットダウン時にキューへ滞留した
// イベントを取りこぼさないよう、停止は必ずStopのキュークローズで行い、
// Enqueue済みのイベントはすべて処理してから終了する。
func (w *Worker) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(w.done)
		log.Println("[Worker] イベントワーカーを開始します")
		for ev := range w.queue {
			w.process(ctx, ev)
		}
		log.Println("[Worker] イベントワーカーを停止します")
	}()
}

// Stop はキューを閉じ、残りのイベントを処理し終えるまで待機する。
// 呼び出し後のEnqueueはパニックするため、イベントを発生させる
// リクエストの受け付けを止めてから呼ぶこと。
func (w *Worker) Stop() {
	close(w.queue)
	<-w.done
}

// process は1つのイベントを処理する。
// 通知の書き込みとメール配信は互いに独立しており、
// 片方が失敗してももう片方は実行される。
// 失敗はログに記録するだけで、イベント自体は処理済みとして扱う。
func (w *Worker) process(ctx context.Context, ev *event.Event) {
	if err := w.writeNotification(ctx, ev); err != nil {
		log.Printf("[Worker] 通知の書き込みに失敗: eventID=%s, type=%s, error=%v", ev.ID, ev.Type, err)
	}

	result, err := w.pipeline.Dispatch(ctx, ev)
	if err != nil {
		log.Printf("[Worker] メール配信に失敗: eventID=%s, type=%s, error=%v", ev.ID, ev.Type, err)
		return
	}
	if len(result.Failed) > 0 {
		log.Printf("[Worker] 一部の受信者への送信に失敗: eventID=%s, attempted=%d, failed=%d",
			ev.ID, result.Attempted, len(result.Failed))
	}
}

// writeNotification はイベントに対応するアプリ内通知を書き込む。
// 新規投稿イベントには通知を書き込まない。メール配信のみが行われる。
func (w *Worker) writeNotification(ctx context.Context, ev *event.Event) error {
	switch ev.Type {
	case event.TypeReplyCreated:
		data, err := event.DecodeData[event.ReplyCreatedData](ev)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("「%s」に%sさんが返信しました", data.PostTitle, data.ReplyAuthorName)
		_, err = w.writer.Write(ctx, data.PostAuthorID, message, "/posts/"+data.PostID)
		return err
	case event.TypeReplyAccepted:
		data, err := event.DecodeData[event.ReplyAcceptedData](ev)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("「%s」であなたの返信が採用されました", data.PostTitle)
		_, err = w.writer.Write(ctx, data.ReplyAuthorID, message, "/posts/"+data.PostID)
		return err
	case event.TypePostCreated:
		return nil
	default:
		return fmt.Errorf("未知のイベントタイプ: %s", ev.Type)
	}
}
