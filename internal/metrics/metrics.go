package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveriesTotal counts inbound webhook deliveries by provider and
	// final outcome (applied, noop, duplicate, ignored, rejected,
	// verification_failed, parse_failed, store_error).
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_deliveries_total",
		Help: "Total webhook deliveries processed, labeled by provider and outcome",
	}, []string{"provider", "outcome"})

	// AnomaliesTotal counts business-rule rejections surfaced for
	// operator review.
	AnomaliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_anomalies_total",
		Help: "Total rejected-but-acknowledged deliveries, labeled by provider and reason",
	}, []string{"provider", "reason"})

	// ProcessingDuration observes end-to-end delivery handling time.
	ProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_webhook_processing_duration_seconds",
		Help:    "Latency distribution of webhook processing",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"provider"})
)
