package delegation

// seqStack is the combiner's private stack. Only one goroutine uses it at a
// time, so it needs no synchronization.
type seqStack struct {
	items []int32
}

func (s *seqStack) push(x int32) {
	s.items = append(s.items, x)
}

// pop returns the top value, or 0 when the stack is empty.
func (s *seqStack) pop() int32 {
	n := len(s.items)
	if n == 0 {
		return 0
	}
	x := s.items[n-1]
	s.items = s.items[:n-1]
	return x
}

func (s *seqStack) len() int { return len(s.items) }

// clear drops the contents and releases the backing array.
func (s *seqStack) clear() int {
	n := len(s.items)
	s.items = nil
	return n
}

func (s *seqStack) snapshot(n int) []int32 {
	if n > len(s.items) {
		n = len(s.items)
	}
	out := make([]int32, 0, n)
	for i := len(s.items) - 1; len(out) < n; i-- {
		out = append(out, s.items[i])
	}
	return out
}
