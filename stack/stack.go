// Package stack provides concurrent LIFO stacks of int32 keys built from
// an elimination front end, a lock-free Treiber stack, and a delegation
// engine, placed and pinned per NUMA node.
//
// A Stack serves a fixed set of workers. Each worker is used by one
// goroutine at a time:
//
//	s, err := stack.New(cfg)
//	...
//	err = s.Run(ctx, func(ctx context.Context, w *stack.Worker) error {
//		w.Push(42)
//		_ = w.Pop()
//		return nil
//	})
//
// Pop returns 0 when it observes an empty stack, so 0 should not be pushed
// by callers that need to tell the two apart.
package stack

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/elimstack/internal/concurrency"
	"github.com/23skdu/elimstack/internal/delegation"
	"github.com/23skdu/elimstack/internal/elimination"
	"github.com/23skdu/elimstack/internal/errors"
	"github.com/23skdu/elimstack/internal/memory"
	"github.com/23skdu/elimstack/internal/numa"
	"github.com/23skdu/elimstack/internal/xorshift"
)

// Stack is one stack instance with its workers, arrays and combiner.
type Stack struct {
	cfg     Config
	variant Variant
	tuning  elimination.Tuning
	logger  zerolog.Logger

	placement *numa.Placement
	alloc     *memory.NodeAllocator

	elim   elimination.Eliminator
	core   *concurrency.LockFreeStack[int32]
	engine *delegation.Engine

	workers []*Worker

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg, places workers on nodes, allocates the per-node
// elimination arrays and per-worker slots on their nodes, and starts the
// combiner for variants that delegate.
func New(cfg Config, opts ...Option) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapConfigurationError(err, "new", "invalid config")
	}
	variant, _ := ParseVariant(cfg.Variant)

	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	topo := o.topology
	if topo == nil {
		var err error
		if topo, err = numa.DetectTopology(); err != nil {
			return nil, errors.WrapPlacementError(err, "new", "failed to detect NUMA topology")
		}
	}

	placement, err := newPlacement(topo, cfg, variant)
	if err != nil {
		return nil, err
	}
	if cfg.CombinerNode >= placement.Nodes() {
		return nil, errors.NewConfigurationError("new",
			fmt.Sprintf("combiner node %d outside %d nodes", cfg.CombinerNode, placement.Nodes()))
	}

	tuning := cfg.tuning(variant)
	if err := tuning.Validate(); err != nil {
		return nil, errors.WrapConfigurationError(err, "new", "invalid exchange tuning")
	}

	s := &Stack{
		cfg:       cfg,
		variant:   variant,
		tuning:    tuning,
		logger:    o.logger.With().Str("variant", variant.String()).Logger(),
		placement: placement,
		alloc:     memory.NewNodeAllocator(cfg.BindMemory, o.logger),
	}
	protocol := "none"
	if variant.eliminates() {
		s.elim = s.newEliminator()
		protocol = s.elim.Protocol()
	}
	s.logger.Info().
		Int("threads", cfg.Threads).
		Int("nodes", placement.Nodes()).
		Int("cores_per_node", placement.CoresPerNode()).
		Str("protocol", protocol).
		Str("topology", topo.String()).
		Msg("Initializing stack")

	s.workers = make([]*Worker, cfg.Threads)
	var slots []*delegation.Slot
	for tid := range s.workers {
		node := placement.NodeFor(tid)
		w := &Worker{
			s:    s,
			tid:  tid,
			node: node,
			ctx: elimination.Context{
				TID:  tid,
				Node: node,
				Rand: xorshift.NewSeeded(uint64(tid) + 1),
			},
		}
		if variant.delegates() {
			w.slot = memory.Alloc[delegation.Slot](s.alloc, placement.KernelID(node))
			slots = append(slots, w.slot)
		}
		s.workers[tid] = w
	}

	if variant.delegates() {
		engineOpts := []delegation.Option{delegation.WithLogger(s.logger)}
		if cfg.Pin {
			engineOpts = append(engineOpts, delegation.WithPin(func() error {
				return placement.Pin(cfg.CombinerNode)
			}))
		}
		s.engine = delegation.NewEngine(slots, engineOpts...)
		if err := s.engine.Start(); err != nil {
			s.logger.Error().Err(err).Int("node", cfg.CombinerNode).Msg("Failed to start combiner")
			_ = s.alloc.Close()
			return nil, err
		}
	} else {
		s.core = concurrency.NewLockFreeStack[int32]()
	}

	return s, nil
}

func newPlacement(topo *numa.Topology, cfg Config, variant Variant) (*numa.Placement, error) {
	opts := numa.Options{Nodes: cfg.Nodes, CoresPerNode: cfg.CoresPerNode}
	p, err := numa.NewPlacement(topo, opts)
	if err != nil {
		return nil, err
	}
	if cfg.CoresPerNode == 0 && variant.halvesCores() && p.CoresPerNode() > 1 {
		opts.CoresPerNode = p.CoresPerNode() / 2
		return numa.NewPlacement(topo, opts)
	}
	return p, nil
}

func (s *Stack) newEliminator() elimination.Eliminator {
	nodes := s.placement.Nodes()
	if s.variant.rendezvous() {
		arrays := make([]*elimination.RendezvousArray, nodes)
		for node := range arrays {
			arrays[node] = memory.Alloc[elimination.RendezvousArray](s.alloc, s.placement.KernelID(node))
		}
		return elimination.NewRendezvousEliminator(arrays, s.tuning)
	}
	arrays := make([]*elimination.TimeoutArray, nodes)
	for node := range arrays {
		arrays[node] = memory.Alloc[elimination.TimeoutArray](s.alloc, s.placement.KernelID(node))
	}
	return elimination.NewTimeoutEliminator(arrays, s.tuning)
}

// Variant returns the coordination strategy in use.
func (s *Stack) Variant() Variant { return s.variant }

// Threads returns the number of workers.
func (s *Stack) Threads() int { return len(s.workers) }

// Worker returns the worker with id tid, in [0, Threads()).
func (s *Stack) Worker(tid int) *Worker { return s.workers[tid] }

// Run calls fn once per worker, each on its own goroutine, pinned to the
// worker's node when pinning is enabled. It returns the first error; the
// context passed to fn is cancelled when any call fails.
func (s *Stack) Run(ctx context.Context, fn func(ctx context.Context, w *Worker) error) error {
	return s.RunN(ctx, len(s.workers), fn)
}

// RunN is Run restricted to workers 0..n-1.
func (s *Stack) RunN(ctx context.Context, n int, fn func(ctx context.Context, w *Worker) error) error {
	if n < 1 || n > len(s.workers) {
		return errors.NewConfigurationError("run",
			fmt.Sprintf("worker count %d outside [1, %d]", n, len(s.workers)))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range s.workers[:n] {
		w := w
		g.Go(func() error {
			// A pinned goroutine exits without unlocking, so the runtime
			// retires its thread instead of reusing a restricted one.
			if err := w.Pin(); err != nil {
				return err
			}
			defer w.Flush()
			return fn(ctx, w)
		})
	}
	return g.Wait()
}

// Clear empties the stack, the elimination arrays and every slot, and
// resets every worker's window to one cell. No operation may be in flight.
func (s *Stack) Clear() {
	var dropped int
	if s.elim != nil {
		s.elim.Reset()
	}
	if s.engine != nil {
		dropped = s.engine.Clear()
	} else {
		dropped = s.core.Clear()
	}
	for _, w := range s.workers {
		w.Flush()
		w.ctx.Window.Reset()
	}
	s.logger.Debug().Int("dropped", dropped).Msg("Stack cleared")
}

// Dump returns up to n values from the top of the stack down, without
// popping. No operation may be in flight.
func (s *Stack) Dump(n int) []int32 {
	if n <= 0 {
		return nil
	}
	if s.engine != nil {
		return s.engine.Snapshot(n)
	}
	return s.core.Snapshot(n)
}

// Stats sums the counters of every worker. No operation may be in flight.
func (s *Stack) Stats() Stats {
	var total Stats
	for _, w := range s.workers {
		total.add(w.Stats())
	}
	return total
}

// Close stops the combiner, flushes worker metrics and releases node-bound
// memory. The stack and its workers must not be used afterwards.
func (s *Stack) Close() error {
	s.closeOnce.Do(func() {
		if s.engine != nil {
			s.engine.Close()
		}
		for _, w := range s.workers {
			w.Flush()
		}
		s.closeErr = s.alloc.Close()
		s.logger.Debug().Msg("Stack closed")
	})
	return s.closeErr
}
