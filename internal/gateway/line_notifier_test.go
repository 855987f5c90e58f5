package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

var testJST = time.FixedZone("JST", 9*60*60)

// newTestLINENotifier テスト用の LINENotifier を構築するヘルパー
func newTestLINENotifier(token, userID string, httpClient *http.Client, endpoint string, clock func() time.Time) *LINENotifier {
	return &LINENotifier{
		channelAccessToken: token,
		userID:             userID,
		httpClient:         httpClient,
		endpoint:           endpoint,
		clock:              clock,
		timezone:           testJST,
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 9, 0, 0, 0, testJST)
}

// --- getWeekdayJapanese テスト ---

func TestGetWeekdayJapanese(t *testing.T) {
	tests := []struct {
		weekday  time.Weekday
		expected string
	}{
		{time.Sunday, "日"},
		{time.Monday, "月"},
		{time.Tuesday, "火"},
		{time.Wednesday, "水"},
		{time.Thursday, "木"},
		{time.Friday, "金"},
		{time.Saturday, "土"},
	}

	for _, tt := range tests {
		t.Run(tt.weekday.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, getWeekdayJapanese(tt.weekday))
		})
	}
}

// --- buildFeedMessage テスト ---

func TestBuildFeedMessage_WithEvents(t *testing.T) {
	n := newTestLINENotifier("token", "user", http.DefaultClient, "", fixedClock)

	events := []domain.Event{
		{ID: 1, Name: "朝会", StartTime: "2024-01-15T10:00:00+09:00", EndTime: "2024-01-15T10:30:00+09:00"},
		{ID: 2, Name: "休暇", StartTime: "2024-01-16", EndTime: "2024-01-17"},
	}

	message := n.buildFeedMessage(events)

	assert.Contains(t, message, "1/15(月) 時点の今後の予定 (2件)")
	assert.Contains(t, message, "🔸 1/15(月) 10:00〜10:30 朝会")
	assert.Contains(t, message, "🔸 1/16(火) 休暇 (終日)")
}

func TestBuildFeedMessage_NoEvents(t *testing.T) {
	n := newTestLINENotifier("token", "user", http.DefaultClient, "", fixedClock)

	message := n.buildFeedMessage(nil)
	assert.Contains(t, message, "1/15(月) 時点: 今後の予定なし")
}

func TestBuildFeedMessage_Truncates(t *testing.T) {
	n := newTestLINENotifier("token", "user", http.DefaultClient, "", fixedClock)

	events := make([]domain.Event, 0, maxDigestEvents+3)
	for i := 0; i < maxDigestEvents+3; i++ {
		events = append(events, domain.Event{
			ID:        int64(i),
			Name:      fmt.Sprintf("event-%d", i),
			StartTime: "2024-01-20",
			EndTime:   "2024-01-21",
		})
	}

	message := n.buildFeedMessage(events)
	assert.Contains(t, message, fmt.Sprintf("(%d件)", maxDigestEvents+3))
	assert.Contains(t, message, "…ほか3件")
	assert.NotContains(t, message, fmt.Sprintf("event-%d ", maxDigestEvents))
}

// --- appendEventToMessage テスト ---

func TestAppendEventToMessage_ConvertsToTimezone(t *testing.T) {
	var builder strings.Builder
	n := newTestLINENotifier("token", "user", http.DefaultClient, "", fixedClock)

	n.appendEventToMessage(&builder, domain.Event{
		Name:      "定例ミーティング",
		StartTime: "2024-01-15T01:00:00Z",
		EndTime:   "2024-01-15T02:00:00Z",
	})

	assert.Contains(t, builder.String(), "10:00〜11:00 定例ミーティング")
}

func TestAppendEventToMessage_WithLocation(t *testing.T) {
	var builder strings.Builder
	n := newTestLINENotifier("token", "user", http.DefaultClient, "", fixedClock)

	n.appendEventToMessage(&builder, domain.Event{
		Name:      "外部ミーティング",
		StartTime: "2024-01-15T14:00:00+09:00",
		EndTime:   "2024-01-15T15:00:00+09:00",
		Location:  "渋谷オフィス",
	})

	result := builder.String()
	assert.Contains(t, result, "外部ミーティング")
	assert.Contains(t, result, "📍 渋谷オフィス")
}

func TestAppendEventToMessage_UnparseableTime(t *testing.T) {
	var builder strings.Builder
	n := newTestLINENotifier("token", "user", http.DefaultClient, "", fixedClock)

	n.appendEventToMessage(&builder, domain.Event{Name: "時刻不明", StartTime: "??", EndTime: "2024-01-15"})

	assert.Equal(t, "🔸 時刻不明\n", builder.String())
}

// --- sendPushMessage テスト（httptest 使用） ---

func TestSendPushMessage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var pushReq linePushRequest
		err = json.Unmarshal(body, &pushReq)
		require.NoError(t, err)
		assert.Equal(t, "test-user", pushReq.To)
		assert.Len(t, pushReq.Messages, 1)
		assert.Equal(t, "text", pushReq.Messages[0].Type)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL, time.Now)

	err := n.sendPushMessage(context.Background(), "テストメッセージ")
	assert.NoError(t, err)
}

func TestSendPushMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		err := json.NewEncoder(w).Encode(lineErrorResponse{
			Message: "Invalid request",
		})
		require.NoError(t, err)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL, time.Now)

	err := n.sendPushMessage(context.Background(), "テストメッセージ")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE API呼び出しが失敗しました")
	assert.Contains(t, err.Error(), "Invalid request")
}

func TestSendFeedNotification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var pushReq linePushRequest
		err = json.Unmarshal(body, &pushReq)
		require.NoError(t, err)

		assert.Contains(t, pushReq.Messages[0].Text, "Event Feed Notifier")
		assert.Contains(t, pushReq.Messages[0].Text, "テストイベント")

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL, fixedClock)

	events := []domain.Event{
		{ID: 1, Name: "テストイベント", StartTime: "2024-01-15T10:00:00+09:00", EndTime: "2024-01-15T11:00:00+09:00"},
	}

	err := n.SendFeedNotification(context.Background(), events)
	assert.NoError(t, err)
}
