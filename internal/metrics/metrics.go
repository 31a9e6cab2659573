// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ParticipationAttempts counts enrollment attempts by path (free, paid)
	// and result (ok or an error code).
	ParticipationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_participation_attempts_total",
			Help: "Participation attempts by path and result",
		},
		[]string{"path", "result"},
	)

	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_status_sweep_runs_total",
			Help: "Completed status sweeps",
		},
	)

	SweepChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_status_sweep_changes_total",
			Help: "Status changes written by the sweeper, by target status",
		},
		[]string{"to"},
	)

	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_status_sweep_failures_total",
			Help: "Status writes that failed during a sweep",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventhub_status_sweep_duration_seconds",
			Help:    "Duration of a status sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Reconciliations counts provider outcomes applied to payments.
	// ingress is webhook, verify or admin.
	Reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_payment_reconciliations_total",
			Help: "Payment reconciliations by ingress and result",
		},
		[]string{"ingress", "result"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_payment_provider_seconds",
			Help:    "Latency of payment provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
