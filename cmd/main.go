package main

import (
	"context"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/event-feed-notifier/internal/app"
	"github.com/k-negishi/event-feed-notifier/internal/config"
	"github.com/k-negishi/event-feed-notifier/internal/logging"
	"github.com/k-negishi/event-feed-notifier/internal/usecase"
)

// LambdaEvent Lambda実行時のイベント構造体
type LambdaEvent struct {
	// 指定があれば設定のユーザーIDの代わりに使用する
	UserID string `json:"user_id,omitempty"`
}

// LambdaResponse Lambda実行結果のレスポンス
type LambdaResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Events     int    `json:"events"`
}

// handler Lambda関数のメインハンドラー
func handler(ctx context.Context, event LambdaEvent) (LambdaResponse, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("設定の読み込みに失敗しました", "err", err)
		return LambdaResponse{StatusCode: 500, Message: "設定読み込みエラー"}, err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, true)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("初期化に失敗しました", "err", err)
		return LambdaResponse{StatusCode: 500, Message: "初期化エラー"}, err
	}
	if a.Notifier == nil {
		logger.Error("LINE通知が設定されていません")
		return LambdaResponse{StatusCode: 500, Message: "LINE通知設定エラー"}, nil
	}

	userID := cfg.UserID
	if event.UserID != "" {
		userID = event.UserID
	}

	uc := usecase.NewNotifyFeedUseCase(a.Feed, a.Notifier)
	skipped, err := uc.Execute(ctx, userID)
	if err != nil {
		logger.Error("予定通知に失敗しました", "user_id", userID, "err", err)
		return LambdaResponse{StatusCode: 500, Message: usecase.UserMessage(err)}, err
	}

	if skipped {
		return LambdaResponse{StatusCode: 200, Message: "予定なしのため通知スキップ"}, nil
	}

	return LambdaResponse{
		StatusCode: 200,
		Message:    "通知送信完了",
		Events:     len(a.Feed.Events()),
	}, nil
}

func main() {
	lambda.Start(handler)
}
