package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

// chainedSource 複数のソースを優先順に連結する EventSource
type chainedSource struct {
	primary EventSource
	mirrors []EventSource
	logger  *slog.Logger
}

// ChainSources primary と mirrors を並行に取得し、優先順に連結したソースを返す
//
// Reconcile は最初に現れたIDを採用するため、同じIDが複数のソースにあれば primary が優先される。
// primary の失敗は取得全体の失敗とし、mirrors の失敗はログに記録して読み飛ばす。
func ChainSources(logger *slog.Logger, primary EventSource, mirrors ...EventSource) EventSource {
	if len(mirrors) == 0 {
		return primary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &chainedSource{primary: primary, mirrors: mirrors, logger: logger}
}

func (c *chainedSource) ListEvents(ctx context.Context, userID string) ([]domain.Event, error) {
	results := make([][]domain.Event, len(c.mirrors)+1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		events, err := c.primary.ListEvents(gctx, userID)
		if err != nil {
			return err
		}
		results[0] = events
		return nil
	})
	for i, mirror := range c.mirrors {
		g.Go(func() error {
			events, err := mirror.ListEvents(gctx, userID)
			if err != nil {
				c.logger.Warn("ミラーからの取得に失敗したためスキップします", "mirror", i, "err", err)
				return nil
			}
			results[i+1] = events
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, events := range results {
		total += len(events)
	}
	out := make([]domain.Event, 0, total)
	for _, events := range results {
		out = append(out, events...)
	}
	return out, nil
}
