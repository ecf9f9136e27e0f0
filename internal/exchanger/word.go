// Package exchanger implements single-word rendezvous cells used to pair a
// push with a concurrent pop without touching a shared stack.
//
// A cell's whole state lives in one uint64 so status, role and value change
// together in a single compare-and-swap:
//
//	bits  0-1  status (Empty, Waiting, Busy/Deposited)
//	bit   2    pop request flag
//	bits 32-63 int32 value
package exchanger

import "fmt"

// Status is the two-bit state of an exchange cell.
type Status uint64

const (
	StatusEmpty Status = iota
	StatusWaiting
	// StatusBusy marks a cell where a second party has answered a waiting
	// one (timeout protocol).
	StatusBusy
	statusInvalid
)

// StatusDeposited is the rendezvous protocol's name for the answered state.
const StatusDeposited = StatusBusy

const (
	statusMask = 0x3
	popFlag    = 1 << 2
	valueShift = 32
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusWaiting:
		return "waiting"
	case StatusBusy:
		return "busy"
	default:
		return fmt.Sprintf("status(%d)", uint64(s))
	}
}

// Word is the packed cell state. The zero Word is an empty cell.
type Word uint64

// Pack builds a word from its parts.
func Pack(s Status, pop bool, v int32) Word {
	w := Word(uint64(uint32(v))<<valueShift) | Word(s&statusMask)
	if pop {
		w |= popFlag
	}
	return w
}

// PushOffer is what a pusher brings to an exchange.
func PushOffer(v int32) Word { return Pack(StatusEmpty, false, v) }

// PopOffer is what a popper brings to an exchange.
func PopOffer() Word { return Pack(StatusEmpty, true, 0) }

func (w Word) Status() Status { return Status(w & statusMask) }
func (w Word) IsPop() bool    { return w&popFlag != 0 }
func (w Word) Value() int32   { return int32(uint32(w >> valueShift)) }

// Offer strips the status bits, leaving role and value.
func (w Word) Offer() Word { return w &^ statusMask }

func (w Word) with(s Status) Word { return w.Offer() | Word(s&statusMask) }

func (w Word) String() string {
	role := "push"
	if w.IsPop() {
		role = "pop"
	}
	return fmt.Sprintf("%s/%s(%d)", w.Status(), role, w.Value())
}
