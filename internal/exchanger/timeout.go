package exchanger

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/23skdu/elimstack/internal/errors"
)

// Outcome reports how an Exchange ended.
type Outcome int

const (
	// Exchanged means a partner was met; the returned word is its offer.
	Exchanged Outcome = iota
	// TimedOut means nobody answered within the spin bound. The cell is Empty again.
	TimedOut
	// Contended means two other parties already occupy the cell.
	Contended
)

func (o Outcome) String() string {
	switch o {
	case Exchanged:
		return "exchanged"
	case TimedOut:
		return "timeout"
	case Contended:
		return "contended"
	default:
		return "unknown"
	}
}

// TimeoutCell runs the Empty -> Waiting -> Busy -> Empty protocol: the first
// arrival parks its offer and spins, the second swaps its own offer in.
type TimeoutCell struct {
	word atomic.Uint64
	_    cpu.CacheLinePad
}

// Exchange offers o and waits up to spins iterations for a partner.
// On Exchanged the partner's offer is returned; otherwise o comes back unchanged.
func (c *TimeoutCell) Exchange(o Word, spins int) (Word, Outcome) {
	o = o.Offer()
	for {
		cur := Word(c.word.Load())
		switch cur.Status() {
		case StatusEmpty:
			mine := o.with(StatusWaiting)
			if !c.word.CompareAndSwap(uint64(cur), uint64(mine)) {
				continue
			}
			for i := 0; i < spins; i++ {
				if w := Word(c.word.Load()); w.Status() == StatusBusy {
					c.word.Store(0)
					return w.Offer(), Exchanged
				}
			}
			if c.word.CompareAndSwap(uint64(mine), 0) {
				return o, TimedOut
			}
			// A partner answered between the last poll and the reset.
			w := Word(c.word.Load())
			if w.Status() != StatusBusy {
				errors.Invariant("exchange", "waiting cell left as %s", w)
			}
			c.word.Store(0)
			return w.Offer(), Exchanged

		case StatusWaiting:
			if c.word.CompareAndSwap(uint64(cur), uint64(o.with(StatusBusy))) {
				return cur.Offer(), Exchanged
			}

		case StatusBusy:
			return o, Contended

		default:
			errors.Invariant("exchange", "impossible cell state %s", cur)
		}
	}
}

// Load returns the current word.
func (c *TimeoutCell) Load() Word { return Word(c.word.Load()) }

// Set overwrites the cell outside the protocol. Only safe while no
// exchange is in flight.
func (c *TimeoutCell) Set(w Word) { c.word.Store(uint64(w)) }

// Reset forces the cell back to Empty. Only safe while no exchange is in flight.
func (c *TimeoutCell) Reset() { c.Set(0) }
