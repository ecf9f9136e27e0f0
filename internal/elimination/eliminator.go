package elimination

import (
	"github.com/23skdu/elimstack/internal/exchanger"
	"github.com/23skdu/elimstack/internal/xorshift"
)

// Context is the worker-scoped state every elimination attempt needs.
type Context struct {
	TID    int
	Node   int
	Window Window
	Rand   *xorshift.Rand
	Stats  Stats
}

// Stats counts elimination outcomes for one worker.
type Stats struct {
	PushEliminated uint64
	PopEliminated  uint64
	TimedOut       uint64
	Contended      uint64
	// Collided counts exchanges that met a partner of the same kind.
	Collided uint64
}

// Eliminator is an elimination front end: it either pairs the operation
// with a complementary one on the worker's node, or reports failure so the
// caller falls through to the central stack.
type Eliminator interface {
	// TryPush reports whether x was handed to a concurrent popper.
	TryPush(c *Context, x int32) bool
	// TryPop returns a value handed over by a concurrent pusher.
	TryPop(c *Context) (int32, bool)
	// Reset empties every array. Not safe with operations in flight.
	Reset()
	// Protocol names the exchange protocol for logs and metrics.
	Protocol() string
}

// timeoutEliminator visits one random cell per attempt.
type timeoutEliminator struct {
	arrays []*TimeoutArray
	spins  int
}

// NewTimeoutEliminator builds a timeout-protocol front end over one array
// per NUMA node, indexed by node id.
func NewTimeoutEliminator(arrays []*TimeoutArray, t Tuning) Eliminator {
	return &timeoutEliminator{arrays: arrays, spins: t.ExchangeSpins}
}

func (e *timeoutEliminator) TryPush(c *Context, x int32) bool {
	got, ok := e.visit(c, exchanger.PushOffer(x))
	if !ok {
		return false
	}
	if !got.IsPop() {
		c.Stats.Collided++
		return false
	}
	c.Stats.PushEliminated++
	return true
}

func (e *timeoutEliminator) TryPop(c *Context) (int32, bool) {
	got, ok := e.visit(c, exchanger.PopOffer())
	if !ok {
		return 0, false
	}
	if got.IsPop() {
		c.Stats.Collided++
		return 0, false
	}
	c.Stats.PopEliminated++
	return got.Value(), true
}

func (e *timeoutEliminator) visit(c *Context, offer exchanger.Word) (exchanger.Word, bool) {
	got, outcome := e.arrays[c.Node].Visit(&c.Window, c.Rand.Uint64(), offer, e.spins)
	switch outcome {
	case exchanger.TimedOut:
		c.Stats.TimedOut++
		c.Window.Shrink()
		return got, false
	case exchanger.Contended:
		c.Stats.Contended++
		return got, false
	}
	return got, true
}

func (e *timeoutEliminator) Reset() {
	for _, a := range e.arrays {
		a.Reset()
	}
}

func (e *timeoutEliminator) Protocol() string { return "timeout" }

// rendezvousEliminator lets poppers park and pushers deposit.
type rendezvousEliminator struct {
	arrays []*RendezvousArray
	tuning Tuning
}

// NewRendezvousEliminator builds a two-phase front end over one array per
// NUMA node, indexed by node id.
func NewRendezvousEliminator(arrays []*RendezvousArray, t Tuning) Eliminator {
	return &rendezvousEliminator{arrays: arrays, tuning: t}
}

func (e *rendezvousEliminator) TryPush(c *Context, x int32) bool {
	if e.arrays[c.Node].Put(&c.Window, c.TID, x, e.tuning) {
		c.Stats.PushEliminated++
		return true
	}
	c.Stats.TimedOut++
	return false
}

func (e *rendezvousEliminator) TryPop(c *Context) (int32, bool) {
	v, ok := e.arrays[c.Node].Get(&c.Window, c.TID, e.tuning)
	if !ok {
		c.Stats.TimedOut++
		return 0, false
	}
	c.Stats.PopEliminated++
	return v, true
}

func (e *rendezvousEliminator) Reset() {
	for _, a := range e.arrays {
		a.Reset()
	}
}

func (e *rendezvousEliminator) Protocol() string { return "rendezvous" }
