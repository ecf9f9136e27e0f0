package stack

import (
	"fmt"

	"github.com/23skdu/elimstack/internal/elimination"
)

// Variant selects the coordination strategy of a Stack.
type Variant string

const (
	// Delegation sends every operation to the combiner.
	Delegation Variant = "delegation"
	// Elimination puts a timeout-protocol elimination array in front of a
	// lock-free Treiber stack.
	Elimination Variant = "elimination"
	// EliminationRendezvous is Elimination with the two-phase protocol.
	EliminationRendezvous Variant = "elimination-rendezvous"
	// Hybrid puts a timeout-protocol elimination array in front of the
	// combiner.
	Hybrid Variant = "hybrid"
	// HybridRendezvous is Hybrid with the two-phase protocol.
	HybridRendezvous Variant = "hybrid-rendezvous"
)

// Variants lists every variant in a stable order.
var Variants = []Variant{Delegation, Elimination, EliminationRendezvous, Hybrid, HybridRendezvous}

// ParseVariant validates a variant name.
func ParseVariant(name string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVariant, name)
}

func (v Variant) String() string { return string(v) }

// eliminates reports whether operations try the elimination array first.
func (v Variant) eliminates() bool { return v != Delegation }

// delegates reports whether the central stack is served by the combiner.
func (v Variant) delegates() bool {
	return v == Delegation || v == Hybrid || v == HybridRendezvous
}

func (v Variant) rendezvous() bool {
	return v == EliminationRendezvous || v == HybridRendezvous
}

// backend names the central stack for metrics.
func (v Variant) backend() string {
	if v.delegates() {
		return "delegation"
	}
	return "lockfree"
}

// tuning returns the exchange constants matched to the back end: the
// combiner answers quickly, so hybrids wait less before giving up.
func (v Variant) tuning() elimination.Tuning {
	if v.delegates() {
		return elimination.DelegationTuning()
	}
	return elimination.LockFreeTuning()
}

// halvesCores reports whether the default cores-per-node is halved, which
// packs twice as many workers onto each node's elimination array.
func (v Variant) halvesCores() bool {
	return v == Hybrid || v == HybridRendezvous
}
