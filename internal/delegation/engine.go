package delegation

import (
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/23skdu/elimstack/internal/errors"
	"github.com/23skdu/elimstack/internal/metrics"
)

const (
	// spinBudget is the number of idle polls before yielding the processor.
	spinBudget = 224

	// flushEvery is how many sweeps the combiner runs between metric flushes.
	flushEvery = 1 << 14
)

// Option configures an Engine.
type Option func(*Engine)

// WithPin sets the function the combiner calls on its locked OS thread
// before serving. A returned error aborts Start.
func WithPin(pin func() error) Option {
	return func(e *Engine) { e.pin = pin }
}

// WithLogger sets the logger for combiner lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine owns the combiner goroutine and the stack it serves.
type Engine struct {
	slots  []*Slot
	stack  seqStack
	pin    func() error
	logger zerolog.Logger

	started atomic.Bool
	stop    atomic.Bool
	done    chan struct{}

	// combiner-local counters, flushed to metrics
	pushes uint64
	pops   uint64
	sweeps uint64
}

// NewEngine builds an engine serving the given slots, one per worker.
// Slots must be Idle.
func NewEngine(slots []*Slot, opts ...Option) *Engine {
	e := &Engine{
		slots:  slots,
		logger: zerolog.Nop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the combiner and waits until it is pinned and serving.
// Calling Start again is a no-op.
func (e *Engine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}
	ready := make(chan error, 1)
	go e.run(ready)
	if err := <-ready; err != nil {
		<-e.done
		return err
	}
	return nil
}

// Close stops the combiner and waits for it to exit. Requests still
// pending in slots are not served; callers stop their workers first.
func (e *Engine) Close() {
	if !e.started.Load() {
		return
	}
	e.stop.Store(true)
	<-e.done
}

func (e *Engine) run(ready chan<- error) {
	defer close(e.done)

	// Never unlocked: the pin may narrow this thread's affinity, so the
	// runtime must retire the thread when the combiner exits.
	runtime.LockOSThread()

	if e.pin != nil {
		if err := e.pin(); err != nil {
			ready <- err
			return
		}
	}
	ready <- nil

	metrics.CombinerRunning.Inc()
	defer metrics.CombinerRunning.Dec()
	e.logger.Debug().Int("slots", len(e.slots)).Msg("combiner started")

	miss := 0
	for !e.stop.Load() {
		if e.sweep() > 0 {
			miss = 0
		} else if miss++; miss >= spinBudget {
			miss = 0
			runtime.Gosched()
		}
		if e.sweeps%flushEvery == 0 {
			e.flush()
		}
	}
	e.flush()
	e.logger.Debug().Msg("combiner stopped")
}

// sweep serves every pending slot once and returns how many it served.
// The stack is updated before the slot flips to Idle, so a worker that
// sees Idle also sees its operation applied.
func (e *Engine) sweep() int {
	served := 0
	for _, s := range e.slots {
		switch s.op.Load() {
		case OpPush:
			e.stack.push(s.value.Load())
			s.op.Store(OpIdle)
			e.pushes++
			served++
		case OpPop:
			s.value.Store(e.stack.pop())
			s.op.Store(OpIdle)
			e.pops++
			served++
		}
	}
	e.sweeps++
	return served
}

func (e *Engine) flush() {
	if e.pushes > 0 {
		metrics.CombinerOpsTotal.WithLabelValues("push").Add(float64(e.pushes))
	}
	if e.pops > 0 {
		metrics.CombinerOpsTotal.WithLabelValues("pop").Add(float64(e.pops))
	}
	metrics.CombinerSweepsTotal.Add(float64(e.sweeps))
	e.pushes, e.pops, e.sweeps = 0, 0, 0
}

// Push delegates a push through s and returns once the combiner applied it.
func (e *Engine) Push(s *Slot, x int32) {
	s.value.Store(x)
	s.op.Store(OpPush)
	e.await(s)
}

// Pop delegates a pop through s. It returns 0 when the stack was empty.
func (e *Engine) Pop(s *Slot) int32 {
	s.op.Store(OpPop)
	e.await(s)
	return s.value.Load()
}

func (e *Engine) await(s *Slot) {
	miss := 0
	for s.op.Load() != OpIdle {
		if miss++; miss < spinBudget {
			continue
		}
		miss = 0
		if e.stop.Load() && s.op.Load() != OpIdle {
			select {
			case <-e.done:
				errors.Invariant("delegate", "request pending on a closed engine")
			default:
			}
		}
		runtime.Gosched()
	}
}

// Clear resets every slot and empties the stack. It requires quiescence:
// no worker may have a request in flight.
func (e *Engine) Clear() int {
	for _, s := range e.slots {
		s.reset()
	}
	return e.stack.clear()
}

// Snapshot returns up to n values from the top down. It requires quiescence.
func (e *Engine) Snapshot(n int) []int32 {
	return e.stack.snapshot(n)
}

// Len returns the number of stacked values. It requires quiescence.
func (e *Engine) Len() int {
	return e.stack.len()
}
