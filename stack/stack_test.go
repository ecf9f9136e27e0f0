package stack

import (
	"bytes"
	"context"
	stderrors "errors"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/elimstack/internal/elimination"
	"github.com/23skdu/elimstack/internal/metrics"
	"github.com/23skdu/elimstack/internal/numa"
)

func newTestStack(t testing.TB, v Variant, threads int, opts ...Option) *Stack {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Variant = string(v)
	cfg.Threads = threads
	cfg.Pin = false

	s, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forEachVariant(t *testing.T, fn func(t *testing.T, v Variant)) {
	for _, v := range Variants {
		t.Run(string(v), func(t *testing.T) { fn(t, v) })
	}
}

func TestStack_SequentialLIFO(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, 1)
		w := s.Worker(0)

		w.Push(1)
		w.Push(2)
		w.Push(3)
		assert.Equal(t, []int32{3, 2, 1}, s.Dump(10))

		assert.Equal(t, int32(3), w.Pop())
		assert.Equal(t, int32(2), w.Pop())
		assert.Equal(t, int32(1), w.Pop())
		assert.Equal(t, int32(0), w.Pop(), "empty pop returns 0")
	})
}

func TestStack_TwoWorkersShareOneStack(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, 2)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var got int32
		err := s.Run(ctx, func(ctx context.Context, w *Worker) error {
			if w.ID() == 0 {
				w.Push(5)
				return nil
			}
			for {
				if got = w.Pop(); got != 0 {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
			}
		})
		require.NoError(t, err)

		assert.Equal(t, int32(5), got)
		assert.Empty(t, s.Dump(10))
		assert.Equal(t, int32(0), s.Worker(0).Pop())
	})
}

func TestStack_EmptyPop(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, 1)
		assert.Equal(t, int32(0), s.Worker(0).Pop())
		assert.Equal(t, uint64(1), s.Stats().EmptyPops)
		assert.Empty(t, s.Dump(10))
	})
}

func TestStack_PhasedNoLossNoDuplicate(t *testing.T) {
	const threads = 4
	const perWorker = 1000

	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, threads)
		ctx := context.Background()

		require.NoError(t, s.Run(ctx, func(_ context.Context, w *Worker) error {
			base := int32(w.ID()*perWorker + 1)
			for i := int32(0); i < perWorker; i++ {
				w.Push(base + i)
			}
			return nil
		}))

		var mu sync.Mutex
		var popped []int32
		require.NoError(t, s.Run(ctx, func(_ context.Context, w *Worker) error {
			local := make([]int32, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, w.Pop())
			}
			mu.Lock()
			popped = append(popped, local...)
			mu.Unlock()
			return nil
		}))

		assertExactlyOnce(t, threads*perWorker, popped)
		assert.Equal(t, int32(0), s.Worker(0).Pop())
	})
}

func TestStack_MixedNoLossNoDuplicate(t *testing.T) {
	const threads = 4
	const perWorker = 2000

	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, threads)

		var mu sync.Mutex
		var popped []int32
		require.NoError(t, s.Run(context.Background(), func(_ context.Context, w *Worker) error {
			base := int32(w.ID()*perWorker + 1)
			local := make([]int32, 0, perWorker)
			for i := int32(0); i < perWorker; i++ {
				w.Push(base + i)
				if i%2 == 1 {
					if x := w.Pop(); x != 0 {
						local = append(local, x)
					}
				}
			}
			mu.Lock()
			popped = append(popped, local...)
			mu.Unlock()
			return nil
		}))

		w := s.Worker(0)
		for x := w.Pop(); x != 0; x = w.Pop() {
			popped = append(popped, x)
		}
		assertExactlyOnce(t, threads*perWorker, popped)

		stats := s.Stats()
		assert.Equal(t, stats.Pushes, stats.PushEliminated+stats.CentralPushes)
		assert.Equal(t, stats.Pops, stats.PopEliminated+stats.CentralPops+stats.EmptyPops)
		assert.Equal(t, stats.PushEliminated, stats.PopEliminated, "eliminations pair up")
		if v == Delegation {
			assert.Zero(t, stats.Eliminated())
		}
	})
}

// assertExactlyOnce checks that values holds each of 1..n exactly once.
func assertExactlyOnce(t *testing.T, n int, values []int32) {
	t.Helper()
	sorted := append([]int32(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	require.Len(t, sorted, n)
	for i, x := range sorted {
		require.Equal(t, int32(i+1), x, "value lost or duplicated")
	}
}

func TestStack_RepeatedClear(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, 4)

		for round := 0; round < 3; round++ {
			require.NoError(t, s.Run(context.Background(), func(_ context.Context, w *Worker) error {
				for i := int32(1); i <= 500; i++ {
					w.Push(i)
					if i%3 == 0 {
						w.Pop()
					}
				}
				return nil
			}))

			s.Clear()
			assert.Empty(t, s.Dump(10))
			for tid := 0; tid < s.Threads(); tid++ {
				assert.Equal(t, 1, s.Worker(tid).Window(), "round %d tid %d", round, tid)
			}
			assert.Equal(t, int32(0), s.Worker(0).Pop())
		}
	})
}

func TestStack_Dump(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, 1)
		w := s.Worker(0)
		for i := int32(1); i <= 20; i++ {
			w.Push(i)
		}

		assert.Equal(t, []int32{20, 19, 18, 17, 16, 15, 14, 13, 12, 11}, s.Dump(10))
		assert.Len(t, s.Dump(100), 20)
		assert.Nil(t, s.Dump(0))
		assert.Equal(t, int32(20), w.Pop(), "dump does not pop")
	})
}

func TestStack_SequentialProjectionIsLIFO(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	parameters.MaxSize = 50

	for _, v := range Variants {
		s := newTestStack(t, v, 1)
		w := s.Worker(0)

		properties := gopter.NewProperties(parameters)
		properties.Property(string(v)+" pops reverse pushes", prop.ForAll(
			func(values []int32) bool {
				s.Clear()
				for _, x := range values {
					w.Push(x)
				}
				for i := len(values) - 1; i >= 0; i-- {
					if w.Pop() != values[i] {
						return false
					}
				}
				return w.Pop() == 0
			},
			gen.SliceOf(gen.Int32Range(1, 1<<30)),
		))
		properties.TestingRun(t)
	}
}

func TestStack_WindowStaysInBounds(t *testing.T) {
	forEachVariant(t, func(t *testing.T, v Variant) {
		s := newTestStack(t, v, 8)

		require.NoError(t, s.Run(context.Background(), func(_ context.Context, w *Worker) error {
			for i := int32(1); i <= 1000; i++ {
				if i%2 == 0 {
					w.Push(i)
				} else {
					w.Pop()
				}
				if size := w.Window(); size < 1 || size > elimination.MaxSlots-1 {
					return stderrors.New("window out of bounds")
				}
			}
			return nil
		}))
	})
}

func TestStack_RunPropagatesError(t *testing.T) {
	s := newTestStack(t, Elimination, 4)
	boom := stderrors.New("boom")

	err := s.Run(context.Background(), func(ctx context.Context, w *Worker) error {
		if w.ID() == 2 {
			return boom
		}
		<-ctx.Done()
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestStack_RunPinned(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = string(Hybrid)
	cfg.Threads = 2
	cfg.Pin = true

	s, err := New(cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Run(context.Background(), func(_ context.Context, w *Worker) error {
		w.Push(int32(w.ID() + 1))
		return nil
	}))
	assert.Len(t, s.Dump(10), 2)
}

func TestStack_SimulatedNodes(t *testing.T) {
	topo := &numa.Topology{
		IDs:  []int{0, 1},
		CPUs: [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}},
	}

	s := newTestStack(t, Elimination, 10, WithTopology(topo))
	nodes := make([]int, s.Threads())
	for tid := range nodes {
		nodes[tid] = s.Worker(tid).Node()
	}
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1, 0, 0}, nodes)

	h := newTestStack(t, Hybrid, 6, WithTopology(topo))
	nodes = nodes[:h.Threads()]
	for tid := range nodes {
		nodes[tid] = h.Worker(tid).Node()
	}
	assert.Equal(t, []int{0, 0, 1, 1, 0, 0}, nodes, "hybrids halve cores per node")

	// Cross-node traffic still meets on the shared central stack.
	s.Worker(0).Push(7)
	assert.Equal(t, int32(7), s.Worker(4).Pop())
}

func TestStack_CombinerNodeOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Variant = string(Delegation)
	cfg.Pin = false
	cfg.CombinerNode = 5

	_, err := New(cfg, WithTopology(numa.SingleNode(2)))
	assert.Error(t, err)
}

func TestStack_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threads = 0

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidThreads)
}

func TestStack_CloseFlushesMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("hybrid-rendezvous", "push"))

	cfg := DefaultConfig()
	cfg.Variant = string(HybridRendezvous)
	cfg.Threads = 1
	cfg.Pin = false
	s, err := New(cfg)
	require.NoError(t, err)

	w := s.Worker(0)
	for i := int32(1); i <= 10; i++ {
		w.Push(i)
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	after := testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("hybrid-rendezvous", "push"))
	assert.Equal(t, before+10, after)
}

func BenchmarkStack(b *testing.B) {
	for _, v := range Variants {
		b.Run(string(v), func(b *testing.B) {
			s := newTestStack(b, v, 1)
			w := s.Worker(0)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				w.Push(int32(i + 1))
				w.Pop()
			}
		})
	}
}

func TestStack_RunN(t *testing.T) {
	s := newTestStack(t, Delegation, 4)

	var mu sync.Mutex
	seen := map[int]bool{}
	require.NoError(t, s.RunN(context.Background(), 2, func(_ context.Context, w *Worker) error {
		mu.Lock()
		seen[w.ID()] = true
		mu.Unlock()
		return nil
	}))
	assert.Equal(t, map[int]bool{0: true, 1: true}, seen)

	assert.Error(t, s.RunN(context.Background(), 0, nil))
	assert.Error(t, s.RunN(context.Background(), 5, nil))
}

func TestStack_InitLogNamesProtocol(t *testing.T) {
	want := map[Variant]string{
		Delegation:            "none",
		Elimination:           "timeout",
		EliminationRendezvous: "rendezvous",
		Hybrid:                "timeout",
		HybridRendezvous:      "rendezvous",
	}
	forEachVariant(t, func(t *testing.T, v Variant) {
		var buf bytes.Buffer
		newTestStack(t, v, 1, WithLogger(zerolog.New(&buf)))
		assert.Contains(t, buf.String(), `"protocol":"`+want[v]+`"`)
		assert.Contains(t, buf.String(), "Initializing stack")
	})
}
