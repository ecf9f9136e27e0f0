package stack

import (
	"github.com/23skdu/elimstack/internal/delegation"
	"github.com/23skdu/elimstack/internal/elimination"
	"github.com/23skdu/elimstack/internal/metrics"
)

// Worker is the per-thread handle to a Stack. Its window, generator and
// slot are private, so a Worker must not be used by two goroutines at once.
type Worker struct {
	s    *Stack
	tid  int
	node int
	ctx  elimination.Context
	slot *delegation.Slot

	counts  Stats
	flushed Stats
}

// ID returns the worker id.
func (w *Worker) ID() int { return w.tid }

// Node returns the NUMA node the worker is placed on.
func (w *Worker) Node() int { return w.node }

// Window returns the current elimination window size.
func (w *Worker) Window() int { return w.ctx.Window.Size() }

// Pin binds the calling goroutine to an OS thread on the worker's node. It
// is a no-op when pinning is disabled.
func (w *Worker) Pin() error {
	if !w.s.cfg.Pin {
		return nil
	}
	if err := w.s.placement.Pin(w.node); err != nil {
		w.s.logger.Error().Err(err).Int("tid", w.tid).Int("node", w.node).Msg("Failed to pin worker")
		return err
	}
	return nil
}

// Push adds x to the stack, either by handing it to a concurrent Pop or by
// linking it onto the central stack.
func (w *Worker) Push(x int32) {
	w.counts.Pushes++
	s := w.s

	if s.elim != nil && s.elim.TryPush(&w.ctx, x) {
		return
	}
	if s.engine != nil {
		w.counts.CentralPushes++
		s.engine.Push(w.slot, x)
		return
	}
	for {
		if s.core.TryPush(x) {
			w.counts.CentralPushes++
			return
		}
		w.counts.CASRetries++
		if s.elim.TryPush(&w.ctx, x) {
			return
		}
	}
}

// Pop removes and returns the top value, or 0 if the stack was observed
// empty.
func (w *Worker) Pop() int32 {
	w.counts.Pops++
	s := w.s

	if s.elim != nil {
		if v, ok := s.elim.TryPop(&w.ctx); ok {
			return v
		}
	}
	if s.engine != nil {
		v := s.engine.Pop(w.slot)
		if v == 0 {
			w.counts.EmptyPops++
		} else {
			w.counts.CentralPops++
		}
		return v
	}
	for {
		v, ok, empty := s.core.TryPop()
		if ok {
			w.counts.CentralPops++
			return v
		}
		if empty {
			w.counts.EmptyPops++
			return 0
		}
		w.counts.CASRetries++
		if v, ok := s.elim.TryPop(&w.ctx); ok {
			return v
		}
	}
}

// Stats returns the worker's counters since creation. Call it from the
// worker's own goroutine or while the stack is quiescent.
func (w *Worker) Stats() Stats {
	w.collect()
	return w.counts
}

func (w *Worker) collect() {
	grows, shrinks := w.ctx.Window.Adjustments()
	w.counts.WindowGrows += grows
	w.counts.WindowShrinks += shrinks

	e := w.ctx.Stats
	w.counts.PushEliminated = e.PushEliminated
	w.counts.PopEliminated = e.PopEliminated
	w.counts.TimedOut = e.TimedOut
	w.counts.Contended = e.Contended
	w.counts.Collided = e.Collided
}

// Flush publishes the counters gathered since the last flush to the
// metrics registry. Same calling rules as Stats.
func (w *Worker) Flush() {
	w.collect()
	d := w.counts.sub(w.flushed)
	w.flushed = w.counts

	variant := w.s.variant.String()
	backend := w.s.variant.backend()
	addCount(metrics.OperationsTotal.WithLabelValues(variant, "push"), d.Pushes)
	addCount(metrics.OperationsTotal.WithLabelValues(variant, "pop"), d.Pops)
	addCount(metrics.EmptyPopsTotal.WithLabelValues(variant), d.EmptyPops)
	addCount(metrics.CentralOpsTotal.WithLabelValues(variant, backend, "push"), d.CentralPushes)
	addCount(metrics.CentralOpsTotal.WithLabelValues(variant, backend, "pop"), d.CentralPops)
	addCount(metrics.CASRetriesTotal.WithLabelValues(variant), d.CASRetries)
	if !w.s.variant.eliminates() {
		return
	}
	addCount(metrics.EliminationsTotal.WithLabelValues(variant, "push"), d.PushEliminated)
	addCount(metrics.EliminationsTotal.WithLabelValues(variant, "pop"), d.PopEliminated)
	addCount(metrics.ExchangeOutcomesTotal.WithLabelValues(variant, "timed_out"), d.TimedOut)
	addCount(metrics.ExchangeOutcomesTotal.WithLabelValues(variant, "contended"), d.Contended)
	addCount(metrics.ExchangeOutcomesTotal.WithLabelValues(variant, "collided"), d.Collided)
	addCount(metrics.WindowAdjustmentsTotal.WithLabelValues(variant, "grow"), d.WindowGrows)
	addCount(metrics.WindowAdjustmentsTotal.WithLabelValues(variant, "shrink"), d.WindowShrinks)
}
