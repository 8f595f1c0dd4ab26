// Package metrics holds the Prometheus collectors of the extraction service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zapateria"

// Pipeline Prometheus metrics.
var (
	RecognitionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_total",
			Help:      "Documents read, by text source",
		},
		[]string{"source"},
	)

	ExtractorOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_outcome_total",
			Help:      "Structured extractor drafts, by kind and draft variant",
		},
		[]string{"kind", "draft"},
	)

	RecoveryStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_strategy_total",
			Help:      "Winning result recovery strategy",
		},
		[]string{"kind", "strategy"},
	)

	ReconcileStepTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_step_total",
			Help:      "Order reconciliation ladder step reached",
		},
		[]string{"step"},
	)

	CatalogFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_total",
			Help:      "Catalog snapshot loads",
		},
		[]string{"result"}, // "ok" / "degraded"
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End to end document processing duration",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

// Register registers every collector with the default registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RecognitionTotal,
			ExtractorOutcomeTotal,
			RecoveryStrategyTotal,
			ReconcileStepTotal,
			CatalogFetchTotal,
			PipelineDuration,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
