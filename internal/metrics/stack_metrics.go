package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Stack Operation Metrics
// =============================================================================

// Workers count into plain local fields on the hot path and flush here in
// batches, so none of these are touched per operation.
var (
	// OperationsTotal counts completed push/pop calls per variant
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_operations_total",
			Help: "Total stack operations completed",
		},
		[]string{"variant", "op"}, // "push", "pop"
	)

	// EmptyPopsTotal counts pops that observed an empty stack and returned 0
	EmptyPopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_empty_pops_total",
			Help: "Total pops that returned the empty sentinel",
		},
		[]string{"variant"},
	)

	// EliminationsTotal counts operations completed by pairing in the elimination array
	EliminationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_eliminations_total",
			Help: "Total operations eliminated against a concurrent counterpart",
		},
		[]string{"variant", "side"}, // "push", "pop"
	)

	// ExchangeOutcomesTotal counts exchange attempts that did not eliminate
	ExchangeOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_exchange_outcomes_total",
			Help: "Total failed exchange attempts by outcome",
		},
		[]string{"variant", "outcome"}, // "timed_out", "contended", "collided"
	)

	// WindowAdjustmentsTotal counts elimination window resizes
	WindowAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_window_adjustments_total",
			Help: "Total elimination window resizes",
		},
		[]string{"variant", "direction"}, // "grow", "shrink"
	)

	// CentralOpsTotal counts operations that reached the central stack
	CentralOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_central_operations_total",
			Help: "Total operations applied to the central stack",
		},
		[]string{"variant", "backend", "op"}, // backend: "lockfree", "delegation"
	)

	// CASRetriesTotal counts lost compare-and-swap attempts on the lock-free top pointer
	CASRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_cas_retries_total",
			Help: "Total failed CAS attempts on the lock-free stack",
		},
		[]string{"variant"},
	)
)

// =============================================================================
// Combiner Metrics
// =============================================================================

var (
	// CombinerOpsTotal counts requests served by the combiner
	CombinerOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_combiner_operations_total",
			Help: "Total slot requests served by the combiner",
		},
		[]string{"op"},
	)

	// CombinerSweepsTotal counts full round-robin passes over the request slots
	CombinerSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elimstack_combiner_sweeps_total",
			Help: "Total round-robin passes over the request slots",
		},
	)

	// CombinerRunning is 1 while a combiner goroutine is serving
	CombinerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "elimstack_combiner_running",
			Help: "Number of running combiner goroutines",
		},
	)
)
