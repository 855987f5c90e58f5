package usecase

import (
	"context"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

// EventSource ユーザーのイベント一覧を取得するポート
type EventSource interface {
	ListEvents(ctx context.Context, userID string) ([]domain.Event, error)
}

// EventSink イベントを削除するポート
type EventSink interface {
	DeleteEvent(ctx context.Context, eventID int64) error
}

// Notifier 通知を送信するポート
type Notifier interface {
	SendFeedNotification(ctx context.Context, events []domain.Event) error
}
