// Package dissemination implements the dissemination barrier of spec.md
// §4.4: a no-central-contention barrier in which every participant writes
// exactly one flag per round, over ceil(log2(nthr)) rounds, such that by the
// end every participant has transitively observed a flag from every other
// participant.
package dissemination

import (
	"sync/atomic"

	"github.com/dijkstracula/go-barrier/atomics"
	"github.com/dijkstracula/go-barrier/barrierassert"
	"github.com/dijkstracula/go-barrier/bitutil"
)

type cachePad [56]byte

// flag is one (parity, round) slot in a participant's flag array: tflag is
// written by the round's partner and spin-read by the owner; pflag points
// at the partner's tflag for the same (parity, round), so Arrive never has
// to recompute a partner index at call time.
type flag struct {
	tflag uint32
	_pad  cachePad
	pflag *uint32
}

// Barrier holds, for each of nthr participants, two parity channels of
// size-many round flags (spec.md §3 "Dissemination"). Construct with New.
type Barrier struct {
	nthr  uint32
	size  uint32
	flags [][2][]flag
}

// State is a single participant's per-round private state: which parity
// channel to use next, the current sense value, and the participant's
// identity.
type State struct {
	parity uint32
	sense  uint32
	tid    uint32
}

var nextTID uint32

// NextTID returns a fresh, process-wide monotonic identity, per spec.md §6's
// literal "process-wide monotonic counter" design. SPEC_FULL.md §5.6 / spec
// design note §9 prefer explicit identity assignment via NewState(tid) — use
// NextTID only when no more explicit scheme is available, and construct at
// most one dissemination Barrier per process if you do, since the counter is
// never reset.
func NextTID() uint32 {
	return atomic.AddUint32(&nextTID, 1) - 1
}

// New builds a dissemination barrier for nthr participants, wiring every
// thread's round partners per spec.md §4.4: for round k with offset 2^k,
// thread i's partner is (i + 2^k) mod nthr (mask-reduced when nthr is a
// power of two).
func New(nthr uint32) *Barrier {
	barrierassert.Truef(nthr > 0, "dissemination.New: nthr must be > 0")
	size, err := bitutil.Log2Ceil(nthr)
	if err != nil {
		panic(err)
	}

	b := &Barrier{nthr: nthr, size: size}
	b.flags = make([][2][]flag, nthr)
	for i := uint32(0); i < nthr; i++ {
		b.flags[i][0] = make([]flag, size)
		b.flags[i][1] = make([]flag, size)
	}

	powerOfTwo := nthr&(nthr-1) == 0
	for i := uint32(0); i < nthr; i++ {
		offset := uint32(1)
		for k := uint32(0); k < size; k, offset = k+1, offset<<1 {
			var j uint32
			if powerOfTwo {
				j = (i + offset) & (nthr - 1)
			} else {
				j = (i + offset) % nthr
			}
			b.flags[i][0][k].pflag = &b.flags[j][0][k].tflag
			b.flags[i][1][k].pflag = &b.flags[j][1][k].tflag
		}
	}
	return b
}

// Size returns ceil(log2(nthr)), the number of rounds one Arrive performs.
func Size(nthr uint32) (uint32, error) {
	return bitutil.Log2Ceil(nthr)
}

// NewState returns a fresh per-participant state for participant tid
// (0 <= tid < nthr), with private sense all-ones, per spec.md §3
// "Dissemination".
func NewState(tid uint32) *State {
	return &State{parity: 0, sense: ^uint32(0), tid: tid}
}

// Arrive runs one round-trip of the dissemination protocol for the
// participant identified by st, against barrier b.
func (b *Barrier) Arrive(st *State) {
	barrierassert.Truef(st.tid < b.nthr, "dissemination.Arrive: tid %d out of range [0,%d)", st.tid, b.nthr)

	row := b.flags[st.tid][st.parity]
	for k := uint32(0); k < b.size; k++ {
		atomics.StoreUint(row[k].pflag, st.sense)
		for atomics.LoadUint(&row[k].tflag) != st.sense {
			atomics.Stall()
		}
	}

	if st.parity == 1 {
		st.sense = ^st.sense
	}
	st.parity = 1 - st.parity
}
