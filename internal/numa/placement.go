package numa

import (
	"strconv"

	"github.com/23skdu/elimstack/internal/errors"
	"github.com/23skdu/elimstack/internal/metrics"
)

// Options overrides what the placement derives from the topology.
// Zero fields take the detected values.
type Options struct {
	Nodes        int
	CoresPerNode int
}

// Placement maps worker ids onto nodes. It is immutable once built, so
// every caller sees the same tid-to-node mapping.
type Placement struct {
	topo         *Topology
	nodes        int
	coresPerNode int
}

// NewPlacement builds a placement over the first opts.Nodes nodes of topo.
func NewPlacement(topo *Topology, opts Options) (*Placement, error) {
	nodes := topo.Nodes()
	switch {
	case opts.Nodes < 0 || opts.Nodes > nodes:
		return nil, errors.NewConfigurationError("placement",
			"requested "+strconv.Itoa(opts.Nodes)+" nodes, topology has "+strconv.Itoa(nodes))
	case opts.Nodes > 0:
		nodes = opts.Nodes
	}

	cores := opts.CoresPerNode
	if cores < 0 {
		return nil, errors.NewConfigurationError("placement", "cores per node must not be negative")
	}
	if cores == 0 {
		total := 0
		for _, cpus := range topo.CPUs[:nodes] {
			total += len(cpus)
		}
		cores = max(1, total/nodes)
	}

	metrics.NUMANodes.Set(float64(nodes))
	return &Placement{topo: topo, nodes: nodes, coresPerNode: cores}, nil
}

// NodeFor returns the node worker tid belongs to: consecutive blocks of
// CoresPerNode ids share a node, wrapping around the node count.
func (p *Placement) NodeFor(tid int) int {
	return (tid / p.coresPerNode) % p.nodes
}

// CPUsFor returns the CPUs of node.
func (p *Placement) CPUsFor(node int) []int {
	return p.topo.CPUs[node]
}

// KernelID returns the kernel's id for node, for memory binding.
func (p *Placement) KernelID(node int) int {
	return p.topo.IDs[node]
}

func (p *Placement) Nodes() int        { return p.nodes }
func (p *Placement) CoresPerNode() int { return p.coresPerNode }

// Pin locks the calling goroutine to its OS thread and restricts that
// thread to the CPUs of node. Once locked, the goroutine stays locked even
// on error. A node outside the placement is rejected before locking.
func (p *Placement) Pin(node int) error {
	if node < 0 || node >= p.nodes {
		return errors.NewPlacementError("pin",
			"node "+strconv.Itoa(node)+" outside "+strconv.Itoa(p.nodes)+" nodes").
			WithContext("node", node)
	}
	label := strconv.Itoa(node)
	if err := pinCPUs(p.CPUsFor(node)); err != nil {
		metrics.PinFailuresTotal.WithLabelValues(label).Inc()
		return errors.WrapPlacementError(err, "pin", "failed to set thread affinity").
			WithContext("node", node)
	}
	metrics.WorkersPinnedTotal.WithLabelValues(label).Inc()
	return nil
}
