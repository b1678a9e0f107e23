// Package metrics provides Prometheus metrics for soft-delete operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

var (
	// OperationsTotal tracks delete/restore calls by outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paranoid",
			Subsystem: "softdelete",
			Name:      "operations_total",
			Help:      "Total number of delete/restore operations by outcome",
		},
		[]string{"entity", "operation", "outcome"},
	)

	// CascadedRecordsTotal tracks dependents whose marker changed through a cascade
	CascadedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paranoid",
			Subsystem: "softdelete",
			Name:      "cascaded_records_total",
			Help:      "Total number of dependent records marked or cleared by cascade",
		},
		[]string{"entity", "operation"},
	)

	// OperationDuration tracks delete/restore duration in seconds, transaction included
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paranoid",
			Subsystem: "softdelete",
			Name:      "operation_duration_seconds",
			Help:      "Duration of delete/restore operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"entity", "operation"},
	)

	// ReadsTotal tracks reader calls by visibility path
	ReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paranoid",
			Subsystem: "reader",
			Name:      "queries_total",
			Help:      "Total number of reads by entity and visibility path",
		},
		[]string{"entity", "visibility"},
	)
)

// ObserveOperation records one finished delete/restore.
func ObserveOperation(entity, operation, outcome string, cascaded int, d time.Duration) {
	OperationsTotal.WithLabelValues(entity, operation, outcome).Inc()
	if cascaded > 0 {
		CascadedRecordsTotal.WithLabelValues(entity, operation).Add(float64(cascaded))
	}
	OperationDuration.WithLabelValues(entity, operation).Observe(d.Seconds())
}

// ObserveRead records one read through the given visibility path.
func ObserveRead(entity, visibility string) {
	ReadsTotal.WithLabelValues(entity, visibility).Inc()
}
