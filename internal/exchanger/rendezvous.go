package exchanger

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/23skdu/elimstack/internal/errors"
)

// waitingWord is the word of a captured cell awaiting a deposit.
var waitingWord = uint64(Pack(StatusWaiting, true, 0))

// RendezvousCell splits an exchange in two phases so a popper can claim a
// cell first (Capture), then wait for a pusher to Deposit into it. Pushers
// only ever deposit into cells that are already Waiting.
type RendezvousCell struct {
	word atomic.Uint64
	_    cpu.CacheLinePad
}

// Capture claims an Empty cell for the caller.
func (c *RendezvousCell) Capture() bool {
	cur := c.word.Load()
	if Word(cur).Status() != StatusEmpty {
		return false
	}
	return c.word.CompareAndSwap(cur, waitingWord)
}

// Wait polls a captured cell up to bound times for a deposit. It returns the
// deposited value, the number of polls spent, and whether a value arrived.
// When it reports false the cell has been released back to Empty.
func (c *RendezvousCell) Wait(bound int) (int32, int, bool) {
	spins := 0
	for ; spins < bound; spins++ {
		if w := Word(c.word.Load()); w.Status() == StatusDeposited {
			c.word.Store(0)
			return w.Value(), spins, true
		}
	}
	if c.word.CompareAndSwap(waitingWord, 0) {
		return 0, spins, false
	}
	// Lost the release race: a pusher deposited just in time.
	w := Word(c.word.Load())
	if w.Status() != StatusDeposited {
		errors.Invariant("rendezvous.wait", "captured cell left as %s", w)
	}
	c.word.Store(0)
	return w.Value(), spins, true
}

// Deposit hands x to whoever captured the cell.
func (c *RendezvousCell) Deposit(x int32) bool {
	cur := c.word.Load()
	if Word(cur).Status() != StatusWaiting {
		return false
	}
	return c.word.CompareAndSwap(cur, uint64(Pack(StatusDeposited, false, x)))
}

// Load returns the current word.
func (c *RendezvousCell) Load() Word { return Word(c.word.Load()) }

// Set overwrites the cell outside the protocol. Only safe while no
// exchange is in flight.
func (c *RendezvousCell) Set(w Word) { c.word.Store(uint64(w)) }

// Reset forces the cell back to Empty. Only safe while no exchange is in flight.
func (c *RendezvousCell) Reset() { c.Set(0) }
