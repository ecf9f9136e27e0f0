// Package delegation serializes stack operations through one combiner
// goroutine. Workers publish requests in per-worker slots; the combiner
// sweeps the slots round-robin and applies them to a private sequential
// stack that no other goroutine touches while it runs.
package delegation

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Slot operation codes. A worker writes Push or Pop; only the combiner
// writes Idle back.
const (
	OpIdle uint32 = iota
	OpPush
	OpPop
)

// Slot is one worker's request mailbox. It holds no Go pointers, so it can
// live in node-bound memory next to the worker that owns it.
type Slot struct {
	op    atomic.Uint32
	value atomic.Int32
	_     cpu.CacheLinePad
}

// Op returns the pending operation code.
func (s *Slot) Op() uint32 { return s.op.Load() }

// Value returns the operand or result last written to the slot.
func (s *Slot) Value() int32 { return s.value.Load() }

func (s *Slot) reset() {
	s.value.Store(0)
	s.op.Store(OpIdle)
}
