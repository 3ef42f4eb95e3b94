package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aviator_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aviator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RoundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aviator_rounds_total",
			Help: "Total number of completed rounds",
		},
	)

	CrashPoint = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aviator_crash_point",
			Help:    "Distribution of round crash points",
			Buckets: []float64{1, 1.2, 1.5, 2, 3, 5, 10, 20, 50, 100, 500},
		},
	)

	BetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aviator_bets_total",
			Help: "Total number of bets by final status",
		},
		[]string{"status"},
	)

	WageredCentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aviator_wagered_cents_total",
			Help: "Total cents wagered",
		},
	)

	PaidOutCentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aviator_paid_out_cents_total",
			Help: "Total cents paid out to players",
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aviator_stream_clients",
			Help: "Number of connected broadcast clients",
		},
	)

	WalletTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aviator_wallet_transactions_total",
			Help: "Total number of wallet transactions by type",
		},
		[]string{"type"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordRound(crashPoint float64) {
	RoundsTotal.Inc()
	CrashPoint.Observe(crashPoint)
}

func RecordBetPlaced(amountCents int64) {
	WageredCentsTotal.Add(float64(amountCents))
}

func RecordBetResolved(status string, payoutCents int64) {
	BetsTotal.WithLabelValues(status).Inc()
	if payoutCents > 0 {
		PaidOutCentsTotal.Add(float64(payoutCents))
	}
}

func RecordWalletTransaction(txType string) {
	WalletTransactionsTotal.WithLabelValues(txType).Inc()
}
