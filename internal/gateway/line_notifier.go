package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

// 1通のメッセージに載せるイベント数の上限
const maxDigestEvents = 20

// LINENotifier LINE Messaging APIを使用したNotifierの実装
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	clock              func() time.Time
	timezone           *time.Location
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
func NewLINENotifier(channelAccessToken, userID string, timezone *time.Location) *LINENotifier {
	if timezone == nil {
		timezone = time.UTC
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
		clock:    time.Now,
		timezone: timezone,
	}
}

// SendFeedNotification 今後のイベント一覧をLINEで通知
func (n *LINENotifier) SendFeedNotification(ctx context.Context, events []domain.Event) error {
	message := n.buildFeedMessage(events)
	return n.sendPushMessage(ctx, message)
}

// buildFeedMessage 通知用のメッセージを構築
func (n *LINENotifier) buildFeedMessage(events []domain.Event) string {
	var messageBuilder strings.Builder
	now := n.clock().In(n.timezone)

	messageBuilder.WriteString("Event Feed Notifier\n\n")

	if len(events) == 0 {
		messageBuilder.WriteString(fmt.Sprintf("%s(%s) 時点: 今後の予定なし\n", now.Format("1/2"), getWeekdayJapanese(now.Weekday())))
		return messageBuilder.String()
	}

	messageBuilder.WriteString(fmt.Sprintf("%s(%s) 時点の今後の予定 (%d件):\n", now.Format("1/2"), getWeekdayJapanese(now.Weekday()), len(events)))

	shown := events
	if len(shown) > maxDigestEvents {
		shown = shown[:maxDigestEvents]
	}
	for _, event := range shown {
		n.appendEventToMessage(&messageBuilder, event)
	}
	if rest := len(events) - len(shown); rest > 0 {
		messageBuilder.WriteString(fmt.Sprintf("…ほか%d件\n", rest))
	}

	return messageBuilder.String()
}

// appendEventToMessage イベントをメッセージに追加
func (n *LINENotifier) appendEventToMessage(builder *strings.Builder, event domain.Event) {
	start, startErr := event.Start(n.timezone)
	end, endErr := event.End(n.timezone)

	switch {
	case startErr != nil || endErr != nil:
		builder.WriteString(fmt.Sprintf("🔸 %s\n", event.Name))
	case event.IsAllDay():
		builder.WriteString(fmt.Sprintf("🔸 %s(%s) %s (終日)\n",
			start.Format("1/2"), getWeekdayJapanese(start.Weekday()), event.Name))
	default:
		start, end = start.In(n.timezone), end.In(n.timezone)
		timeRange := fmt.Sprintf("%s〜%s", start.Format("15:04"), end.Format("15:04"))
		builder.WriteString(fmt.Sprintf("🔸 %s(%s) %s %s\n",
			start.Format("1/2"), getWeekdayJapanese(start.Weekday()), timeRange, event.Name))
	}

	// 場所情報があれば追加
	if event.Location != "" {
		builder.WriteString(fmt.Sprintf("   📍 %s\n", event.Location))
	}
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	// リクエストボディを作成
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %v", err)
	}

	// HTTPリクエストを作成
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %v", err)
	}

	// ヘッダーを設定
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", n.channelAccessToken))

	// APIリクエストを送信
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %v", err)
	}
	defer resp.Body.Close()

	// レスポンスを確認
	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

// getWeekdayJapanese 曜日を日本語に変換
func getWeekdayJapanese(weekday time.Weekday) string {
	return [...]string{"日", "月", "火", "水", "木", "金", "土"}[weekday]
}
