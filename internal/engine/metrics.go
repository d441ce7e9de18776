package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// mutationTotal counts finished mutation attempts by op and result.
	mutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notevault_mutation_total",
		Help: "Finished mutation attempts by op and result",
	}, []string{"op", "result"})

	// rollbackTotal counts optimistic entries removed after a failed create.
	rollbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notevault_optimistic_rollback_total",
		Help: "Optimistic entries rolled back after a failed create",
	})

	// reconcileDuration tracks full reload latency.
	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notevault_reconcile_duration_seconds",
		Help:    "Full collection reload duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// reconcileErrors counts reloads that failed and left the cache as is.
	reconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notevault_reconcile_errors_total",
		Help: "Full collection reloads that failed",
	})
)
