package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
	"github.com/k-negishi/event-feed-notifier/internal/metrics"
)

// ErrStaleRefresh 後から開始された Refresh に追い越された
var ErrStaleRefresh = errors.New("より新しい更新が開始されたため結果を破棄しました")

// GenericErrorMessage サーバーからメッセージが得られなかった場合の表示文言
const GenericErrorMessage = "エラーが発生しました。しばらくしてから再度お試しください。"

// Feed 表示中ユーザーの整理済みイベント一覧を保持する
//
// Refresh は呼び出しごとに世代番号を振り、より新しい Refresh が開始されていれば
// 古い結果を採用しない。Delete と Refresh の間に順序保証はない。
type Feed struct {
	source EventSource
	sink   EventSink
	clock  func() time.Time
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	userID     string
	events     []domain.Event
}

// NewFeed フィードを作成
func NewFeed(source EventSource, sink EventSink, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		source: source,
		sink:   sink,
		clock:  time.Now,
		logger: logger,
		events: []domain.Event{},
	}
}

// Refresh イベント一覧を取得・整理して保持する
//
// 表示ユーザーが変わった場合は保持中の一覧を破棄する。取得に失敗した場合は
// 保持中の一覧をそのまま残してエラーを返す。
func (f *Feed) Refresh(ctx context.Context, userID string) ([]domain.Event, error) {
	f.mu.Lock()
	f.generation++
	generation := f.generation
	if userID != f.userID {
		f.userID = userID
		f.events = []domain.Event{}
		metrics.Records.Set(0)
	}
	f.mu.Unlock()

	raw, err := f.source.ListEvents(ctx, userID)
	if err != nil {
		if f.superseded(generation) {
			metrics.Refreshes.WithLabelValues("stale").Inc()
			f.logger.Debug("古い更新の取得エラーを破棄しました", "user_id", userID, "generation", generation, "err", err)
			return nil, ErrStaleRefresh
		}
		metrics.Refreshes.WithLabelValues("error").Inc()
		f.logger.Error("イベント一覧の取得に失敗しました", "user_id", userID, "err", err)
		return nil, err
	}

	events, stats := domain.ReconcileWithStats(raw, f.clock())
	metrics.ObserveReconcile(stats)

	f.mu.Lock()
	defer f.mu.Unlock()

	if generation != f.generation {
		metrics.Refreshes.WithLabelValues("stale").Inc()
		f.logger.Debug("古い更新結果を破棄しました", "user_id", userID, "generation", generation, "current", f.generation)
		return nil, ErrStaleRefresh
	}

	f.events = events
	metrics.Records.Set(float64(len(events)))
	metrics.Refreshes.WithLabelValues("ok").Inc()
	f.logger.Info("イベント一覧を更新しました",
		"user_id", userID,
		"received", stats.Input,
		"kept", len(events),
		"expired", stats.Expired,
		"duplicates", stats.Duplicates,
		"malformed", stats.Malformed,
		"dropped", stats.Dropped(),
	)

	return cloneEvents(events), nil
}

// Events 保持中の一覧のコピーを返す
func (f *Feed) Events() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneEvents(f.events)
}

func (f *Feed) superseded(generation uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return generation != f.generation
}

// Delete イベントを削除し、成功したら保持中の一覧からも取り除く
func (f *Feed) Delete(ctx context.Context, eventID int64) error {
	if err := f.sink.DeleteEvent(ctx, eventID); err != nil {
		metrics.Deletes.WithLabelValues("error").Inc()
		f.logger.Warn("イベントの削除に失敗しました", "event_id", eventID, "err", err)
		return err
	}

	f.mu.Lock()
	f.events = domain.RemoveByID(f.events, eventID)
	metrics.Records.Set(float64(len(f.events)))
	f.mu.Unlock()

	metrics.Deletes.WithLabelValues("ok").Inc()
	return nil
}

// serverMessager サーバーから返されたメッセージを持つエラー
type serverMessager interface {
	ServerMessage() string
}

// UserMessage ユーザーに表示するエラーメッセージを返す
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return GenericErrorMessage
}

func cloneEvents(events []domain.Event) []domain.Event {
	out := make([]domain.Event, len(events))
	copy(out, events)
	return out
}
