package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// NUMA Placement Metrics
// =============================================================================

var (
	// NUMANodes reports the node count the placement policy uses
	NUMANodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "elimstack_numa_nodes",
			Help: "Number of NUMA nodes in the active placement",
		},
	)

	// WorkersPinnedTotal counts threads pinned per node, combiner included
	WorkersPinnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_numa_workers_pinned_total",
			Help: "Total threads pinned to each NUMA node",
		},
		[]string{"node"},
	)

	// PinFailuresTotal counts affinity calls the kernel rejected
	PinFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_numa_pin_failures_total",
			Help: "Total failed thread pinning attempts",
		},
		[]string{"node"},
	)

	// NodeBoundBytes tracks memory currently bound to each node
	NodeBoundBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "elimstack_numa_bound_bytes",
			Help: "Bytes of node-bound memory currently mapped",
		},
		[]string{"node"},
	)

	// NodeBindFailuresTotal counts mbind failures that fell back to the Go heap
	NodeBindFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elimstack_numa_bind_failures_total",
			Help: "Total node binding failures that fell back to the Go heap",
		},
		[]string{"node"},
	)
)
