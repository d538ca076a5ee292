// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docstore_operation_duration_seconds",
		Help:    "Duration of document store operations",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"backend", "operation", "collection", "status"})

	StoreOperationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_operation_total",
		Help: "Number of document store operations",
	}, []string{"backend", "operation", "collection", "status"})

	ConsistencyGaps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_consistency_gaps_total",
		Help: "Dual writes whose second half failed after the first succeeded",
	}, []string{"operation"})

	ReactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_reactions_total",
		Help: "Reaction toggles by resulting transition",
	}, []string{"transition"})

	ReviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engagement_reviews_total",
		Help: "Review submissions by outcome",
	}, []string{"outcome"})

	ReconcileCorrections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_corrections_total",
		Help: "Records corrected by the reconciliation job",
	}, []string{"task"})

	ReconcileRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_run_seconds",
		Help:    "Duration of reconciliation runs",
		Buckets: prometheus.DefBuckets,
	})

	IdempotentReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idempotency_replays_total",
		Help: "Requests answered from a stored idempotent response",
	})
)

// MustRegister registers all collectors
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		StoreOperationDuration,
		StoreOperationTotal,
		ConsistencyGaps,
		ReactionsTotal,
		ReviewsTotal,
		ReconcileCorrections,
		ReconcileRunSeconds,
		IdempotentReplays,
	)
}

// ObserveStoreOperation records duration and outcome of a store call
func ObserveStoreOperation(backend, operation, collection string, start time.Time, err error) {
	if backend == "" {
		backend = "unknown"
	}
	if collection == "" {
		collection = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperationDuration.WithLabelValues(backend, operation, collection, status).Observe(time.Since(start).Seconds())
	StoreOperationTotal.WithLabelValues(backend, operation, collection, status).Inc()
}

// IncConsistencyGap counts a half-applied dual write
func IncConsistencyGap(operation string) {
	ConsistencyGaps.WithLabelValues(operation).Inc()
}

func IncReaction(transition string) {
	ReactionsTotal.WithLabelValues(transition).Inc()
}

func IncReview(outcome string) {
	ReviewsTotal.WithLabelValues(outcome).Inc()
}

// AddCorrections counts records repaired by a reconciliation task
func AddCorrections(task string, n int) {
	if n > 0 {
		ReconcileCorrections.WithLabelValues(task).Add(float64(n))
	}
}
