package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

// MockEventSource は EventSource のテスト用モック
type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

// MockEventSink は EventSink のテスト用モック
type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) DeleteEvent(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// MockNotifier は Notifier のテスト用モック
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendFeedNotification(ctx context.Context, events []domain.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
