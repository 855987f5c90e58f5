package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

// --- Execute テスト ---

func TestExecute_Success(t *testing.T) {
	source := new(MockEventSource)
	notifier := new(MockNotifier)
	uc := NewNotifyFeedUseCase(newTestFeed(source, nil), notifier)

	raw := []domain.Event{
		{ID: 1, Name: "朝会", EndTime: "2099-01-01T10:00:00Z"},
		{ID: 2, Name: "昨日の会議", EndTime: "2000-01-01T10:00:00Z"},
	}
	upcoming := []domain.Event{raw[0]}

	source.On("ListEvents", mock.Anything, "42").Return(raw, nil)
	notifier.On("SendFeedNotification", mock.Anything, upcoming).Return(nil)

	skipped, err := uc.Execute(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, skipped)
	source.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestExecute_NoUpcomingEvents_Skipped(t *testing.T) {
	source := new(MockEventSource)
	notifier := new(MockNotifier)
	uc := NewNotifyFeedUseCase(newTestFeed(source, nil), notifier)

	source.On("ListEvents", mock.Anything, "42").Return([]domain.Event{{ID: 1, EndTime: "2000-01-01"}}, nil)

	skipped, err := uc.Execute(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, skipped)
	// 予定なしの場合 SendFeedNotification は呼ばれない
	notifier.AssertNotCalled(t, "SendFeedNotification")
}

func TestExecute_SourceError(t *testing.T) {
	source := new(MockEventSource)
	notifier := new(MockNotifier)
	uc := NewNotifyFeedUseCase(newTestFeed(source, nil), notifier)

	source.On("ListEvents", mock.Anything, "42").Return(nil, errors.New("event API error"))

	_, err := uc.Execute(context.Background(), "42")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "event API error")
	notifier.AssertNotCalled(t, "SendFeedNotification")
}

func TestExecute_NotifierError(t *testing.T) {
	source := new(MockEventSource)
	notifier := new(MockNotifier)
	uc := NewNotifyFeedUseCase(newTestFeed(source, nil), notifier)

	source.On("ListEvents", mock.Anything, "42").Return([]domain.Event{{ID: 1, EndTime: "2099-01-01"}}, nil)
	notifier.On("SendFeedNotification", mock.Anything, mock.Anything).Return(errors.New("LINE API error"))

	_, err := uc.Execute(context.Background(), "42")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE API error")
}
