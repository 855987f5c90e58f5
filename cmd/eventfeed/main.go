package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/k-negishi/event-feed-notifier/internal/app"
	"github.com/k-negishi/event-feed-notifier/internal/config"
	"github.com/k-negishi/event-feed-notifier/internal/domain"
	"github.com/k-negishi/event-feed-notifier/internal/logging"
	"github.com/k-negishi/event-feed-notifier/internal/refresher"
	"github.com/k-negishi/event-feed-notifier/internal/usecase"
)

func main() {
	once := flag.Bool("once", false, "Fetch and print the reconciled feed, then exit")
	deleteID := flag.Int64("delete", 0, "Delete the event with this ID, then exit")
	notify := flag.Bool("notify", false, "Push the feed to LINE on every change (watch mode)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Address for the /metrics endpoint in watch mode (empty to disable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, false)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("初期化に失敗しました", "err", err)
		os.Exit(1)
	}

	switch {
	case *deleteID != 0:
		err = runDelete(ctx, a, *deleteID)
	case *once:
		err = runOnce(ctx, a, os.Stdout)
	default:
		err = runWatch(ctx, a, *notify, *metricsAddr, logger)
	}
	if err != nil {
		os.Exit(1)
	}
}

// runDelete 1件削除し、失敗時はサーバーのメッセージを表示する
func runDelete(ctx context.Context, a *app.App, id int64) error {
	if err := a.Feed.Delete(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "削除できませんでした: %s\n", usecase.UserMessage(err))
		return err
	}
	fmt.Printf("イベント %d を削除しました\n", id)
	return nil
}

// runOnce 1回だけ取得して一覧を表示する
func runOnce(ctx context.Context, a *app.App, w io.Writer) error {
	events, err := a.Feed.Refresh(ctx, a.Config.UserID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "予定を取得できませんでした: %s\n", usecase.UserMessage(err))
		return err
	}
	printEvents(w, events)
	return nil
}

// runWatch スケジュールに従って再取得し続ける
func runWatch(ctx context.Context, a *app.App, notify bool, metricsAddr string, logger *slog.Logger) error {
	r, err := refresher.New(refresher.Config{
		Schedule: a.Config.RefreshCron,
		Timeout:  a.Config.RequestTimeout * 2,
		Location: a.Config.Location(),
	}, a.Feed, a.Config.UserID, logger)
	if err != nil {
		logger.Error("定期更新の初期化に失敗しました", "err", err)
		return err
	}

	if notify {
		if a.Notifier == nil {
			logger.Warn("LINE通知が設定されていないため通知しません")
		} else {
			r.OnChange(func(events []domain.Event) {
				if err := a.Notifier.SendFeedNotification(ctx, events); err != nil {
					logger.Warn("LINE通知の送信に失敗しました", "err", err)
				}
			})
		}
	}

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("メトリクスサーバーが停止しました", "err", err)
			}
		}()
	}

	r.Start(ctx)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	return r.Stop(shutdownCtx)
}

func printEvents(w io.Writer, events []domain.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "今後の予定はありません")
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s", e.ID, e.StartTime, e.EndTime, e.Name)
		if e.Location != "" {
			fmt.Fprintf(w, "\t@%s", e.Location)
		}
		fmt.Fprintln(w)
	}
}
