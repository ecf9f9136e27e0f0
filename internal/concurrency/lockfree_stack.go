package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// LockFreeStack is a Treiber stack: a singly linked list whose top pointer
// only ever changes through compare-and-swap. Unlinked nodes are reclaimed
// by the garbage collector, so a Pop racing with another Pop can never read
// a node that has been freed or reused.
type LockFreeStack[T any] struct {
	_   cpu.CacheLinePad
	top atomic.Pointer[stackNode[T]]
	_   cpu.CacheLinePad
}

type stackNode[T any] struct {
	value T
	next  *stackNode[T]
}

func NewLockFreeStack[T any]() *LockFreeStack[T] {
	return &LockFreeStack[T]{}
}

func (s *LockFreeStack[T]) Push(value T) {
	newNode := &stackNode[T]{value: value}

	for {
		head := s.top.Load()
		newNode.next = head
		if s.top.CompareAndSwap(head, newNode) {
			return
		}
	}
}

// TryPush makes a single CAS attempt and reports whether it won.
func (s *LockFreeStack[T]) TryPush(value T) bool {
	head := s.top.Load()
	return s.top.CompareAndSwap(head, &stackNode[T]{value: value, next: head})
}

func (s *LockFreeStack[T]) Pop() (T, bool) {
	for {
		head := s.top.Load()
		if head == nil {
			var zero T
			return zero, false
		}

		if s.top.CompareAndSwap(head, head.next) {
			return head.value, true
		}
	}
}

// TryPop makes a single CAS attempt. empty is true when the stack was
// observed empty; otherwise ok reports whether the attempt won.
func (s *LockFreeStack[T]) TryPop() (value T, ok, empty bool) {
	head := s.top.Load()
	if head == nil {
		return value, false, true
	}
	if s.top.CompareAndSwap(head, head.next) {
		return head.value, true, false
	}
	return value, false, false
}

func (s *LockFreeStack[T]) IsEmpty() bool {
	return s.top.Load() == nil
}

// Clear detaches the whole list at once and returns how many values it held.
// Concurrent pushes that land after the swap survive.
func (s *LockFreeStack[T]) Clear() int {
	n := 0
	for node := s.top.Swap(nil); node != nil; node = node.next {
		n++
	}
	return n
}

// Snapshot returns up to n values from the top down. It is only a
// consistent picture when no Push or Pop runs concurrently.
func (s *LockFreeStack[T]) Snapshot(n int) []T {
	out := make([]T, 0, n)
	for node := s.top.Load(); node != nil && len(out) < n; node = node.next {
		out = append(out, node.value)
	}
	return out
}
