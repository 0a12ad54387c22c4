// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lirawatch_transactions_total",
			Help: "Transactions accepted, by direction and source",
		},
		[]string{"direction", "source"},
	)
	outliersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lirawatch_outliers_total",
			Help: "Transactions flagged as outliers, by direction",
		},
		[]string{"direction"},
	)
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lirawatch_alert_notifications_total",
			Help: "Alert notifications written, by result",
		},
		[]string{"result"},
	)
	alertPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lirawatch_alert_passes_total",
			Help: "Full alert evaluation passes",
		},
	)
	ticksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lirawatch_scheduler_ticks_total",
			Help: "Scheduler ticks, by outcome",
		},
		[]string{"outcome"},
	)
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lirawatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lirawatch_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"endpoint"},
	)
)

// TransactionAccepted counts a stored transaction.
func TransactionAccepted(direction, source string, outlier bool) {
	transactionsTotal.WithLabelValues(direction, source).Inc()
	if outlier {
		outliersTotal.WithLabelValues(direction).Inc()
	}
}

// NotificationsDispatched records one dispatch pass.
func NotificationsDispatched(created, failed int) {
	alertPassesTotal.Inc()
	notificationsTotal.WithLabelValues("created").Add(float64(created))
	notificationsTotal.WithLabelValues("failed").Add(float64(failed))
}

// Tick records a scheduler tick outcome: ok, skipped or failed.
func Tick(outcome string) {
	ticksTotal.WithLabelValues(outcome).Inc()
}

// Request records one served HTTP request.
func Request(endpoint, method, status string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(endpoint, method, status).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
