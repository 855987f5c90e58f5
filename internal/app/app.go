// Package app 設定から各コンポーネントを組み立てる
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/k-negishi/event-feed-notifier/internal/config"
	"github.com/k-negishi/event-feed-notifier/internal/gateway"
	"github.com/k-negishi/event-feed-notifier/internal/usecase"
)

// App 組み立て済みのコンポーネント
type App struct {
	Config   *config.Config
	Feed     *usecase.Feed
	Notifier usecase.Notifier // LINE未設定の場合は nil
}

// Build 設定からイベントAPI・ミラーカレンダー・LINE通知を組み立てる
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	apiClient, err := gateway.NewEventAPIClient(cfg.EventAPIBaseURL, cfg.EventAPIToken, cfg.RequestTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("イベントAPIクライアントの初期化に失敗しました: %w", err)
	}

	var mirrors []usecase.EventSource
	if cfg.HasMirror() {
		mirror, err := gateway.NewGoogleCalendarSource(ctx, []byte(cfg.GoogleCredentials), cfg.CalendarID, logger)
		if err != nil {
			return nil, fmt.Errorf("google Calendarの初期化に失敗しました: %w", err)
		}
		mirrors = append(mirrors, mirror)
	}

	source := usecase.ChainSources(logger, apiClient, mirrors...)

	a := &App{
		Config: cfg,
		Feed:   usecase.NewFeed(source, apiClient, logger),
	}
	if cfg.HasLINE() {
		a.Notifier = gateway.NewLINENotifier(cfg.LineChannelAccessToken, cfg.LineUserID, cfg.Location())
	}

	return a, nil
}
