// Package refresher スケジュールに従ってフィードの再取得を繰り返す
package refresher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
	"github.com/k-negishi/event-feed-notifier/internal/usecase"
)

// Feed 再取得対象のフィード
type Feed interface {
	Refresh(ctx context.Context, userID string) ([]domain.Event, error)
}

// Config 再取得の設定
type Config struct {
	Schedule string        // cron形式 (例: "*/5 * * * *")
	Timeout  time.Duration // 1回の再取得のタイムアウト
	Location *time.Location
}

// Refresher cronスケジュールでフィードを再取得する
//
// 実行中の再取得が終わるまで次の実行はスキップされるため、再取得は直列化される。
type Refresher struct {
	cfg    Config
	feed   Feed
	userID string
	logger *slog.Logger

	onChange func([]domain.Event)

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New Refresher を作成
func New(cfg Config, feed Feed, userID string, logger *slog.Logger) (*Refresher, error) {
	if cfg.Schedule == "" {
		return nil, errors.New("再取得スケジュールが設定されていません")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Refresher{
		cfg:    cfg,
		feed:   feed,
		userID: userID,
		logger: logger,
	}

	r.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := r.cron.AddFunc(cfg.Schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("再取得スケジュールの解析に失敗しました (%s): %w", cfg.Schedule, err)
	}

	return r, nil
}

// OnChange 再取得結果を受け取るコールバックを設定（Start より前に呼ぶこと）
func (r *Refresher) OnChange(fn func([]domain.Event)) {
	r.onChange = fn
}

// Start 即時に1回再取得し、以降はスケジュールに従って再取得する
func (r *Refresher) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.refresh()
	r.cron.Start()

	r.logger.Info("フィードの定期更新を開始しました", "schedule", r.cfg.Schedule, "user_id", r.userID)
}

// Stop スケジュールを止め、実行中の再取得の完了を待つ
func (r *Refresher) Stop(ctx context.Context) error {
	stopped := r.cron.Stop()
	if r.cancel != nil {
		r.cancel()
	}

	select {
	case <-stopped.Done():
		r.logger.Info("フィードの定期更新を停止しました")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	events, err := r.feed.Refresh(ctx, r.userID)
	if errors.Is(err, usecase.ErrStaleRefresh) {
		return
	}
	if err != nil {
		// 保持中の一覧を表示し続け、次回のスケジュールで再取得する
		r.logger.Warn("フィードの更新に失敗しました", "user_id", r.userID, "err", err)
		return
	}

	if r.onChange != nil {
		r.onChange(events)
	}
}
