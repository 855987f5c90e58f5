package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-negishi/event-feed-notifier/internal/config"
)

func TestBuild_WiresEventAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/events/user/42":
			_, _ = w.Write([]byte(`[
				{"id": 1, "name": "a", "start_time": "2099-01-01", "end_time": "2099-01-02"},
				{"id": 1, "name": "dup", "start_time": "2099-01-01", "end_time": "2099-01-02"},
				{"id": 2, "name": "b", "start_time": "2000-01-01", "end_time": "2000-01-02"}
			]`))
		case r.Method == http.MethodDelete && r.URL.Path == "/events/1":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := &config.Config{
		EventAPIBaseURL: server.URL,
		UserID:          "42",
		Timezone:        "UTC",
		RequestTimeout:  5 * time.Second,
	}

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, a.Notifier)

	events, err := a.Feed.Refresh(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Name)

	require.NoError(t, a.Feed.Delete(context.Background(), 1))
	assert.Empty(t, a.Feed.Events())
}

func TestBuild_WithLINE(t *testing.T) {
	cfg := &config.Config{
		EventAPIBaseURL:        "https://api.example.com",
		UserID:                 "42",
		Timezone:               "UTC",
		LineChannelAccessToken: "token",
		LineUserID:             "U1",
	}

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Notifier)
}

func TestBuild_InvalidGoogleCredentials(t *testing.T) {
	cfg := &config.Config{
		EventAPIBaseURL:   "https://api.example.com",
		UserID:            "42",
		GoogleCredentials: "not json",
	}

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "google Calendarの初期化に失敗しました")
}
