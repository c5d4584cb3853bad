// Package metrics exposes the Prometheus counters and histograms scraped
// from /metrics, grounded on the teacher pack's promhttp.Handler() wiring.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SharesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gosend_shares_created_total",
		Help: "Number of shares created via POST /v1/shares.",
	})
	SharesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gosend_shares_consumed_total",
		Help: "Number of shares successfully consumed exactly once.",
	})
	ShareConsumeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gosend_share_consume_conflicts_total",
		Help: "Number of consume attempts that lost the coordinator race.",
	})
	InboxEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosend_inbox_enqueued_total",
		Help: "Number of inbox items enqueued, by item type.",
	}, []string{"type"})
	InboxAcked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gosend_inbox_acked_total",
		Help: "Number of inbox items acknowledged and deleted.",
	})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gosend_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds, by route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
)

// ObserveDuration records a completed request's latency under route/status.
func ObserveDuration(route, status string, since time.Time) {
	RequestDuration.WithLabelValues(route, status).Observe(time.Since(since).Seconds())
}
