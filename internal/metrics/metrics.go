// Package metrics イベントフィードのPrometheusメトリクス
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/k-negishi/event-feed-notifier/internal/domain"
)

var (
	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfeed_refresh_total",
		Help: "Total number of feed refreshes, labelled by result (ok, error, stale).",
	}, []string{"result"})

	RecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfeed_records_dropped_total",
		Help: "Total number of records removed during reconciliation, labelled by reason.",
	}, []string{"reason"})

	Deletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventfeed_delete_total",
		Help: "Total number of delete requests, labelled by result (ok, error).",
	}, []string{"result"})

	Records = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventfeed_records",
		Help: "Number of records currently held in the reconciled feed.",
	})
)

// ObserveReconcile Reconcile の除外件数を記録
func ObserveReconcile(stats domain.Stats) {
	RecordsDropped.WithLabelValues("expired").Add(float64(stats.Expired))
	RecordsDropped.WithLabelValues("duplicate").Add(float64(stats.Duplicates))
	RecordsDropped.WithLabelValues("malformed").Add(float64(stats.Malformed))
}
