package usecase

import (
	"context"
	"fmt"
)

// NotifyFeedUseCase 今後の予定通知ユースケース
type NotifyFeedUseCase struct {
	feed     *Feed
	notifier Notifier
}

// NewNotifyFeedUseCase ユースケースを生成
func NewNotifyFeedUseCase(feed *Feed, notifier Notifier) *NotifyFeedUseCase {
	return &NotifyFeedUseCase{
		feed:     feed,
		notifier: notifier,
	}
}

// Execute フィードを更新し、今後の予定があればLINE通知を送信する
func (uc *NotifyFeedUseCase) Execute(ctx context.Context, userID string) (skipped bool, err error) {
	events, err := uc.feed.Refresh(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("予定の取得に失敗しました: %w", err)
	}

	// 今後の予定がない場合はスキップ
	if len(events) == 0 {
		return true, nil
	}

	if err := uc.notifier.SendFeedNotification(ctx, events); err != nil {
		return false, fmt.Errorf("LINE通知の送信に失敗しました: %w", err)
	}

	return false, nil
}
