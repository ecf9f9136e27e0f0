package concurrency

import (
	"sort"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLockFreeStack_BasicOperations(t *testing.T) {
	s := NewLockFreeStack[int32]()
	assert.True(t, s.IsEmpty())

	s.Push(42)
	s.Push(17)
	s.Push(89)
	assert.False(t, s.IsEmpty())

	val, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, int32(89), val, "LIFO")

	val, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, int32(17), val)

	val, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, int32(42), val)

	_, ok = s.Pop()
	assert.False(t, ok, "Stack should be empty after popping all items")
}

func TestLockFreeStack_SequentialProjectionIsLIFO(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("pops reverse pushes", prop.ForAll(
		func(values []int32) bool {
			s := NewLockFreeStack[int32]()
			for _, v := range values {
				s.Push(v)
			}
			for i := len(values) - 1; i >= 0; i-- {
				v, ok := s.Pop()
				if !ok || v != values[i] {
					return false
				}
			}
			return s.IsEmpty()
		},
		gen.SliceOf(gen.Int32()),
	))

	properties.TestingRun(t)
}

func TestLockFreeStack_TryOperations(t *testing.T) {
	s := NewLockFreeStack[int32]()

	_, ok, empty := s.TryPop()
	assert.False(t, ok)
	assert.True(t, empty)

	require.True(t, s.TryPush(5), "uncontended CAS must win")
	v, ok, empty := s.TryPop()
	assert.True(t, ok)
	assert.False(t, empty)
	assert.Equal(t, int32(5), v)
}

func TestLockFreeStack_ClearAndSnapshot(t *testing.T) {
	s := NewLockFreeStack[int32]()
	for i := int32(1); i <= 20; i++ {
		s.Push(i)
	}

	assert.Equal(t, []int32{20, 19, 18}, s.Snapshot(3))
	assert.Len(t, s.Snapshot(100), 20)
	assert.Equal(t, 20, s.Clear())
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.Snapshot(10))
	assert.Equal(t, 0, s.Clear())
}

func TestLockFreeStack_ConcurrentNoLossNoDuplicate(t *testing.T) {
	const workers = 8
	const perWorker = 2000

	s := NewLockFreeStack[int32]()

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		base := int32(w*perWorker + 1)
		g.Go(func() error {
			for i := int32(0); i < perWorker; i++ {
				s.Push(base + i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var mu sync.Mutex
	popped := make([]int32, 0, workers*perWorker)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			local := make([]int32, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				v, ok := s.Pop()
				if ok {
					local = append(local, v)
				}
			}
			mu.Lock()
			popped = append(popped, local...)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, popped, workers*perWorker)
	sort.Slice(popped, func(i, j int) bool { return popped[i] < popped[j] })
	for i, v := range popped {
		require.Equal(t, int32(i+1), v)
	}
	assert.True(t, s.IsEmpty())
}

func BenchmarkLockFreeStack_PushPop(b *testing.B) {
	s := NewLockFreeStack[int32]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Push(int32(i))
		if _, ok := s.Pop(); !ok {
			b.Fatalf("Pop failed")
		}
	}
}

func BenchmarkLockFreeStack_Parallel(b *testing.B) {
	s := NewLockFreeStack[int32]()
	b.RunParallel(func(pb *testing.PB) {
		i := int32(0)
		for pb.Next() {
			i++
			if i&1 == 0 {
				s.Push(i)
			} else {
				s.Pop()
			}
		}
	})
}
