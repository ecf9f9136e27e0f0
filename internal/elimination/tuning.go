package elimination

import "errors"

// Tuning bounds the spinning done by both exchange protocols.
type Tuning struct {
	// ExchangeSpins caps the wait of a parked timeout-protocol exchange.
	ExchangeSpins int
	// WaitingCount caps how long a rendezvous popper waits for a deposit.
	WaitingCount int
	// TryingCount caps the deposit rounds of a rendezvous pusher.
	TryingCount int
	// IncreaseThreshold is the number of busy probes after which a
	// rendezvous popper widens its window.
	IncreaseThreshold int
	// DecreaseThreshold is the busy-probe count below which an exhausted
	// wait narrows the window.
	DecreaseThreshold int
}

// LockFreeTuning is used in front of the lock-free stack, where a missed
// elimination falls back to a cheap CAS and waiting longer pays off.
func LockFreeTuning() Tuning {
	return Tuning{
		ExchangeSpins:     1000,
		WaitingCount:      1000,
		TryingCount:       1000,
		IncreaseThreshold: MaxSlots,
		DecreaseThreshold: 2,
	}
}

// DelegationTuning is used in front of the delegation engine, where the
// fallback is a round trip through the combiner and the elimination
// attempt must stay short.
func DelegationTuning() Tuning {
	return Tuning{
		ExchangeSpins:     100,
		WaitingCount:      50,
		TryingCount:       50,
		IncreaseThreshold: MaxSlots / 2,
		DecreaseThreshold: 2,
	}
}

// Validate rejects bounds that would make an exchange never wait.
func (t Tuning) Validate() error {
	if t.ExchangeSpins <= 0 || t.WaitingCount <= 0 || t.TryingCount <= 0 {
		return errors.New("elimination tuning: spin bounds must be positive")
	}
	if t.IncreaseThreshold <= 0 || t.DecreaseThreshold < 0 {
		return errors.New("elimination tuning: invalid window thresholds")
	}
	return nil
}
