package elimination

import (
	"runtime"

	"github.com/23skdu/elimstack/internal/exchanger"
)

// TimeoutArray is one node's cells for the timeout protocol.
// It holds no Go pointers, so it can live in node-bound memory.
type TimeoutArray struct {
	cells [MaxSlots]exchanger.TimeoutCell
}

// Visit exchanges offer on a cell picked by rnd within the worker's window.
// A contended cell widens the window; shrinking on timeout is left to the
// caller.
func (a *TimeoutArray) Visit(w *Window, rnd uint64, offer exchanger.Word, spins int) (exchanger.Word, exchanger.Outcome) {
	idx := rnd % uint64(w.Size())
	got, outcome := a.cells[idx].Exchange(offer, spins)
	if outcome == exchanger.Contended {
		w.Grow()
	}
	return got, outcome
}

// Reset empties every cell. Not safe with exchanges in flight.
func (a *TimeoutArray) Reset() {
	for i := range a.cells {
		a.cells[i].Reset()
	}
}

// RendezvousArray is one node's cells for the two-phase protocol.
// It holds no Go pointers, so it can live in node-bound memory.
type RendezvousArray struct {
	cells [MaxSlots]exchanger.RendezvousCell
}

// Get captures a free cell starting at tid's home slot and waits there for
// a pusher's deposit.
func (a *RendezvousArray) Get(w *Window, tid int, t Tuning) (int32, bool) {
	idx, busy := a.findFree(w, tid%w.Size(), t.IncreaseThreshold)
	v, spins, ok := a.cells[idx].Wait(t.WaitingCount)
	if busy < t.DecreaseThreshold && spins >= t.WaitingCount {
		w.Shrink()
	}
	return v, ok
}

// findFree probes forward from idx until it captures a cell. It returns the
// captured index and the busy probes counted since the last widening.
func (a *RendezvousArray) findFree(w *Window, idx, threshold int) (int, int) {
	busy := 0
	for {
		if a.cells[idx].Capture() {
			return idx, busy
		}
		idx = (idx + 1) % w.Size()
		busy++
		if busy > threshold {
			w.Grow()
			busy = 0
			// Captured cells are released by goroutines that may need this P.
			runtime.Gosched()
		}
	}
}

// Put tries to deposit x into tid's home slot or its successor.
func (a *RendezvousArray) Put(w *Window, tid int, x int32, t Tuning) bool {
	for i := 0; i < t.TryingCount; i++ {
		size := w.Size()
		s := tid % size
		if a.cells[s].Deposit(x) {
			return true
		}
		if n := (s + 1) % size; n != s && a.cells[n].Deposit(x) {
			return true
		}
	}
	return false
}

// Reset empties every cell. Not safe with exchanges in flight.
func (a *RendezvousArray) Reset() {
	for i := range a.cells {
		a.cells[i].Reset()
	}
}
