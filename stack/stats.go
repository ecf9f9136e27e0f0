package stack

import "github.com/prometheus/client_golang/prometheus"

// Stats counts what happened to a worker's operations.
type Stats struct {
	Pushes    uint64
	Pops      uint64
	EmptyPops uint64

	// PushEliminated and PopEliminated count operations completed by
	// pairing in the elimination array.
	PushEliminated uint64
	PopEliminated  uint64
	// CentralPushes and CentralPops count operations applied to the
	// lock-free stack or the combiner's stack.
	CentralPushes uint64
	CentralPops   uint64
	CASRetries    uint64

	TimedOut      uint64
	Contended     uint64
	Collided      uint64
	WindowGrows   uint64
	WindowShrinks uint64
}

// Eliminated returns the operations that never reached the central stack.
func (s Stats) Eliminated() uint64 { return s.PushEliminated + s.PopEliminated }

func (s *Stats) add(o Stats) {
	s.Pushes += o.Pushes
	s.Pops += o.Pops
	s.EmptyPops += o.EmptyPops
	s.PushEliminated += o.PushEliminated
	s.PopEliminated += o.PopEliminated
	s.CentralPushes += o.CentralPushes
	s.CentralPops += o.CentralPops
	s.CASRetries += o.CASRetries
	s.TimedOut += o.TimedOut
	s.Contended += o.Contended
	s.Collided += o.Collided
	s.WindowGrows += o.WindowGrows
	s.WindowShrinks += o.WindowShrinks
}

func (s Stats) sub(o Stats) Stats {
	return Stats{
		Pushes:         s.Pushes - o.Pushes,
		Pops:           s.Pops - o.Pops,
		EmptyPops:      s.EmptyPops - o.EmptyPops,
		PushEliminated: s.PushEliminated - o.PushEliminated,
		PopEliminated:  s.PopEliminated - o.PopEliminated,
		CentralPushes:  s.CentralPushes - o.CentralPushes,
		CentralPops:    s.CentralPops - o.CentralPops,
		CASRetries:     s.CASRetries - o.CASRetries,
		TimedOut:       s.TimedOut - o.TimedOut,
		Contended:      s.Contended - o.Contended,
		Collided:       s.Collided - o.Collided,
		WindowGrows:    s.WindowGrows - o.WindowGrows,
		WindowShrinks:  s.WindowShrinks - o.WindowShrinks,
	}
}

func addCount(c prometheus.Counter, n uint64) {
	if n > 0 {
		c.Add(float64(n))
	}
}
