package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

// ミラーカレンダーのイベントに付与する非公開拡張プロパティ
const (
	propEventID = "event_id"
	propUserID  = "user_id"
	propPrivacy = "privacy"
	propStory   = "story"
)

// 1回の取得で扱うイベントの上限
const maxMirrorResults = 250

// EventsProvider Google Calendar API呼び出しを抽象化するインターフェース
type EventsProvider interface {
	ListEvents(ctx context.Context, calendarID, timeMin, userID string) ([]*calendar.Event, error)
}

// calendarEventsProvider calendar.Service を使用した EventsProvider の実装
type calendarEventsProvider struct {
	service *calendar.Service
}

func (p *calendarEventsProvider) ListEvents(ctx context.Context, calendarID, timeMin, userID string) ([]*calendar.Event, error) {
	events, err := p.service.Events.List(calendarID).
		Context(ctx).
		TimeMin(timeMin).
		PrivateExtendedProperty(propUserID + "=" + userID).
		SingleEvents(false).
		MaxResults(maxMirrorResults).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// GoogleCalendarSource Google Calendarのミラーカレンダーからイベントを取得するソース
type GoogleCalendarSource struct {
	provider   EventsProvider
	calendarID string
	clock      func() time.Time
	logger     *slog.Logger
}

// NewGoogleCalendarSource サービスアカウント認証でミラーカレンダーのソースを作成
func NewGoogleCalendarSource(ctx context.Context, credentialsJSON []byte, calendarID string, logger *slog.Logger) (*GoogleCalendarSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %v", err)
	}

	service, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %v", err)
	}

	return NewGoogleCalendarSourceWithProvider(&calendarEventsProvider{service: service}, calendarID, logger), nil
}

// NewGoogleCalendarSourceWithProvider EventsProvider を指定してソースを作成
func NewGoogleCalendarSourceWithProvider(provider EventsProvider, calendarID string, logger *slog.Logger) *GoogleCalendarSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleCalendarSource{
		provider:   provider,
		calendarID: calendarID,
		clock:      time.Now,
		logger:     logger,
	}
}

// ListEvents 指定ユーザーのまだ終了していないミラーイベントを取得
func (s *GoogleCalendarSource) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	timeMin := s.clock().Format(time.RFC3339)

	items, err := s.provider.ListEvents(ctx, s.calendarID, timeMin, userID)
	if err != nil {
		return nil, fmt.Errorf("カレンダーイベントの取得に失敗しました: %v", err)
	}

	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		event, err := convertToEvent(item)
		if err != nil {
			s.logger.Warn("イベントの変換をスキップしました", "google_event_id", item.Id, "err", err)
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// convertToEvent Google Calendar APIのイベントをドメインエンティティに変換
func convertToEvent(item *calendar.Event) (domain.Event, error) {
	private := map[string]string{}
	if item.ExtendedProperties != nil && item.ExtendedProperties.Private != nil {
		private = item.ExtendedProperties.Private
	}

	rawID, ok := private[propEventID]
	if !ok {
		return domain.Event{}, fmt.Errorf("イベントIDが設定されていません")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("イベントIDの解析に失敗しました: %v", err)
	}

	start := eventTimeString(item.Start)
	if start == "" {
		return domain.Event{}, fmt.Errorf("開始時刻が設定されていません")
	}
	end := eventTimeString(item.End)
	if end == "" {
		return domain.Event{}, fmt.Errorf("終了時刻が設定されていません")
	}

	privacy := domain.Privacy(private[propPrivacy])
	if privacy == "" {
		privacy = privacyFromVisibility(item.Visibility)
	}

	return domain.Event{
		ID:          id,
		Name:        item.Summary,
		StartTime:   start,
		EndTime:     end,
		Location:    item.Location,
		Description: item.Description,
		Privacy:     privacy,
		Story:       private[propStory],
		Repeat:      strings.Join(item.Recurrence, "\n"),
	}, nil
}

// eventTimeString 時刻指定ありなら日時、終日なら日付を返す
func eventTimeString(eventTime *calendar.EventDateTime) string {
	if eventTime == nil {
		return ""
	}
	if eventTime.DateTime != "" {
		return eventTime.DateTime
	}
	return eventTime.Date
}

func privacyFromVisibility(visibility string) domain.Privacy {
	switch visibility {
	case "private", "confidential":
		return domain.PrivacyPrivate
	case "public":
		return domain.PrivacyPublic
	default:
		return ""
	}
}
