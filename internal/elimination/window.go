// Package elimination holds the per-node arrays of exchange cells that let
// a push and a pop cancel out before reaching the central stack, and the
// per-worker heuristics that size how much of an array a worker uses.
package elimination

// MaxSlots is the number of exchange cells in one node's array.
const MaxSlots = 32

// Window is a worker's active prefix of an array (exSize). It is private to
// one worker and never synchronized; workers are expected to disagree.
// The zero value is a window of size 1.
type Window struct {
	extra   int
	grows   uint64
	shrinks uint64
}

// Size returns the number of cells the worker currently spreads over,
// always within [1, MaxSlots-1].
func (w *Window) Size() int { return w.extra + 1 }

// Grow widens the window by one cell. It reports whether the size changed.
func (w *Window) Grow() bool {
	if w.extra+1 >= MaxSlots-1 {
		return false
	}
	w.extra++
	w.grows++
	return true
}

// Shrink narrows the window by one cell. It reports whether the size changed.
func (w *Window) Shrink() bool {
	if w.extra == 0 {
		return false
	}
	w.extra--
	w.shrinks++
	return true
}

// Reset returns the window to size 1. Counters are kept.
func (w *Window) Reset() { w.extra = 0 }

// Adjustments returns how often the window grew and shrank, and zeroes
// the counters.
func (w *Window) Adjustments() (grows, shrinks uint64) {
	grows, shrinks = w.grows, w.shrinks
	w.grows, w.shrinks = 0, 0
	return grows, shrinks
}
