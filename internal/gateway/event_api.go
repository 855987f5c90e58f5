package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

const defaultRequestTimeout = 15 * time.Second

// レスポンスボディの読み込み上限
const maxResponseBytes = 4 << 20

// ErrInvalidPayload イベント一覧のレスポンスがJSON配列ではない
var ErrInvalidPayload = errors.New("イベント一覧のレスポンスが不正です")

// APIError イベントAPIが2xx以外を返した
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("イベントAPI呼び出しが失敗しました (Status: %d)", e.StatusCode)
	}
	return fmt.Sprintf("イベントAPI呼び出しが失敗しました (Status: %d): %s", e.StatusCode, e.Message)
}

// ServerMessage サーバーが返したメッセージ
func (e *APIError) ServerMessage() string {
	return e.Message
}

// apiErrorResponse イベントAPIのエラーレスポンス構造体
type apiErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// EventAPIClient REST APIを使用したイベントの取得・削除クライアント
type EventAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	newID      func() string
}

// NewEventAPIClient イベントAPIクライアントを作成
// token が空でなければ Bearer 認証を付与する
func NewEventAPIClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) (*EventAPIClient, error) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if strings.TrimSpace(token) != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		httpClient = oauth2.NewClient(context.Background(), source)
		httpClient.Timeout = timeout
	}

	return NewEventAPIClientWithHTTPClient(baseURL, httpClient, logger)
}

// NewEventAPIClientWithHTTPClient http.Client を指定してイベントAPIクライアントを作成
func NewEventAPIClientWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*EventAPIClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("イベントAPIのベースURLが設定されていません")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("イベントAPIのベースURLが不正です: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &EventAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		newID:      uuid.NewString,
	}, nil
}

// ListEvents 指定ユーザーのイベント一覧を取得
func (c *EventAPIClient) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("ユーザーIDが指定されていません")
	}

	raw, err := c.do(ctx, http.MethodGet, "/events/user/"+url.PathEscape(userID))
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}

	var records []eventRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if records == nil {
		// "null" は配列ではない
		return nil, ErrInvalidPayload
	}

	events := make([]domain.Event, 0, len(records))
	for _, record := range records {
		events = append(events, record.toDomain())
	}

	c.logger.Debug("イベント一覧を取得しました", "user_id", userID, "count", len(events))
	return events, nil
}

// eventRecord イベントAPIのレコード
// 時刻が文字列以外の場合は空文字として扱い、Reconcile で除外させる
type eventRecord struct {
	domain.Event
	StartTime json.RawMessage `json:"start_time"`
	EndTime   json.RawMessage `json:"end_time"`
}

func (r eventRecord) toDomain() domain.Event {
	event := r.Event
	event.StartTime = rawString(r.StartTime)
	event.EndTime = rawString(r.EndTime)
	return event
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// DeleteEvent 指定IDのイベントを削除
func (c *EventAPIClient) DeleteEvent(ctx context.Context, eventID int64) error {
	if _, err := c.do(ctx, http.MethodDelete, "/events/"+strconv.FormatInt(eventID, 10)); err != nil {
		return fmt.Errorf("イベント %d の削除に失敗しました: %w", eventID, err)
	}

	c.logger.Info("イベントを削除しました", "event_id", eventID)
	return nil
}

func (c *EventAPIClient) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	requestID := c.newID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("イベントAPIリクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("イベントAPIがエラーを返しました",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    decodeErrorMessage(raw),
		}
	}

	return raw, nil
}

// decodeErrorMessage エラーレスポンスからメッセージを取り出す
func decodeErrorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var errorResponse apiErrorResponse
	if err := json.Unmarshal(raw, &errorResponse); err != nil {
		return ""
	}
	if errorResponse.Message != "" {
		return errorResponse.Message
	}
	return errorResponse.Error
}
