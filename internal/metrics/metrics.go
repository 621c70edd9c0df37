package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "points",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	LedgerTransactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Name:      "ledger_transactions_total",
		Help:      "Ledger transactions committed, by type.",
	}, []string{"type"})

	LedgerRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Name:      "ledger_rejections_total",
		Help:      "Spends and adjustments rejected, by error kind.",
	}, []string{"kind"})

	OutboxPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "points",
		Name:      "outbox_published_total",
		Help:      "Outbox messages handed to the broker, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(HTTPRequestDuration, LedgerTransactions, LedgerRejections, OutboxPublished)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
