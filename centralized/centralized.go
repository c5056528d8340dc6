// Package centralized implements the simplest of the five barrier
// algorithms from spec.md §4.2: a single shared arrival counter and a
// single shared sense flag. It is not scalable — every arrival contends on
// the same cache line — but it is the baseline every other algorithm in
// this module improves on.
package centralized

import (
	"github.com/dijkstracula/go-barrier/atomics"
	"github.com/dijkstracula/go-barrier/barrierassert"
)

// Barrier is the shared structure for a centralized barrier. The zero value
// is ready to use for a cohort of any fixed size once constructed via New.
type Barrier struct {
	value uint32
	sense uint32
}

// State is a single participant's per-round state. Each participant must
// hold its own State and must not share it with another goroutine.
type State struct {
	sense uint32
}

// New returns a shared Barrier ready for a cohort of nthr participants.
// nthr must be the exact count of goroutines that will call Arrive on it
// each round (spec.md §7).
func New(nthr uint32) *Barrier {
	barrierassert.Truef(nthr > 0, "centralized.New: nthr must be > 0")
	return &Barrier{}
}

// NewState returns a fresh per-participant state with private sense 0, the
// initial value spec.md §3 "Centralized" specifies.
func NewState() *State {
	return &State{sense: 0}
}

// Arrive blocks the calling goroutine until all nthr participants of b have
// called Arrive for the current round, then returns. It may be called again
// immediately to begin the next round — the barrier never needs
// reinitialization (spec.md §4.1's sense-reversal technique).
func (b *Barrier) Arrive(st *State, nthr uint32) {
	st.sense = ^st.sense
	sense := st.sense

	prior := atomics.FetchAddUint(&b.value, 1)
	if prior == nthr-1 {
		atomics.StoreUint(&b.value, 0)
		atomics.StoreUint(&b.sense, sense)
		return
	}

	for sense != atomics.LoadUint(&b.sense) {
		atomics.Stall()
	}
}
