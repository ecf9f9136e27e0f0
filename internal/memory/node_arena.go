package memory

import (
	"errors"
	"reflect"
	"strconv"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"github.com/23skdu/elimstack/internal/metrics"
)

const (
	// DefaultRegionSize is the size of each node-bound mapping.
	DefaultRegionSize = 64 * 1024

	// blockAlign keeps every allocation on its own cache line.
	blockAlign = 64
)

// errBindingUnsupported is returned by mapNodeRegion where the kernel
// offers no memory policy.
var errBindingUnsupported = errors.New("node binding not supported on this platform")

// NodeAllocator hands out zeroed objects placed in memory bound to a NUMA
// node. Allocation is for setup: it takes a mutex and maps regions lazily.
// Objects must hold no Go pointers, since the collector does not scan
// mapped regions; types with pointers go to the Go heap instead.
type NodeAllocator struct {
	bind       bool
	regionSize int
	logger     zerolog.Logger

	mu      sync.Mutex
	arenas  map[int]*nodeArena
	regions [][]byte
	closed  bool
}

type nodeArena struct {
	node   int
	mem    []byte
	offset int
}

// NewNodeAllocator creates an allocator. With bind false, or in a race
// build, every allocation comes from the Go heap.
func NewNodeAllocator(bind bool, logger zerolog.Logger) *NodeAllocator {
	if bind && raceEnabled {
		logger.Debug().Msg("Race detector enabled, node binding disabled")
	}
	return &NodeAllocator{
		bind:       bind && !raceEnabled,
		regionSize: DefaultRegionSize,
		logger:     logger,
		arenas:     make(map[int]*nodeArena),
	}
}

// Alloc returns a zeroed T placed on kernel node node when binding is
// enabled and possible, and on the Go heap otherwise.
func Alloc[T any](a *NodeAllocator, node int) *T {
	var zero T
	typ := reflect.TypeOf(zero)
	if !a.bind || typ == nil || hasPointers(typ) {
		return new(T)
	}
	p := a.alloc(node, int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
	if p == nil {
		return new(T)
	}
	return (*T)(p)
}

func (a *NodeAllocator) alloc(node, size, align int) unsafe.Pointer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || size == 0 {
		return nil
	}
	align = max(align, blockAlign)

	arena := a.arenas[node]
	if arena != nil {
		off := (arena.offset + align - 1) &^ (align - 1)
		if off+size <= len(arena.mem) {
			arena.offset = off + size
			return unsafe.Pointer(&arena.mem[off])
		}
	}

	mem, err := mapNodeRegion(max(a.regionSize, size), node)
	if err != nil {
		if !errors.Is(err, errBindingUnsupported) {
			metrics.NodeBindFailuresTotal.WithLabelValues(strconv.Itoa(node)).Inc()
			a.logger.Warn().Err(err).Int("node", node).Msg("Node binding failed, using Go heap")
		}
		// Stop retrying for the rest of this allocator's life.
		a.bind = false
		return nil
	}

	a.regions = append(a.regions, mem)
	metrics.NodeBoundBytes.WithLabelValues(strconv.Itoa(node)).Add(float64(len(mem)))
	a.arenas[node] = &nodeArena{node: node, mem: mem, offset: size}
	return unsafe.Pointer(&mem[0])
}

// Binding reports whether allocations are still being placed on nodes.
func (a *NodeAllocator) Binding() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bind
}

// Close unmaps every region. Objects returned by Alloc must not be used
// afterwards unless they came from the Go heap.
func (a *NodeAllocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for node, arena := range a.arenas {
		metrics.NodeBoundBytes.WithLabelValues(strconv.Itoa(node)).Set(0)
		arena.mem = nil
	}
	for _, mem := range a.regions {
		if err := unmapRegion(mem); err != nil {
			errs = append(errs, err)
		}
	}
	a.regions = nil
	return errors.Join(errs...)
}

// hasPointers reports whether values of t contain anything the garbage
// collector would need to trace.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
