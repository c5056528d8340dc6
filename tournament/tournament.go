// Package tournament implements the tournament barrier of spec.md §4.5: a
// pairwise elimination over ceil(log2(nthr))+1 static rounds. Every
// participant is assigned, at construction time, a fixed role per round —
// Winner, Loser, Bye, Champion, or (at round 0) Dropout — and follows that
// role through an arrival phase (bottom of the tree up to the Champion) and
// a wakeup phase (Champion back down to every Dropout).
package tournament

import (
	"github.com/dijkstracula/go-barrier/atomics"
	"github.com/dijkstracula/go-barrier/barrierassert"
	"github.com/dijkstracula/go-barrier/bitutil"
)

// Role is a participant's static per-round label.
type Role int

const (
	// Dropout marks round 0 for every participant: the sentinel at the
	// bottom of the wakeup path.
	Dropout Role = iota
	// Winner waits for its opponent's flag, then advances to the next
	// round; on the way back down it releases that same opponent.
	Winner
	// Loser signals its opponent and waits to be released, then
	// immediately begins its own wakeup descent.
	Loser
	// Bye has no opponent this round and simply advances.
	Bye
	// Champion is the unique participant that completes the tournament
	// and starts the wakeup phase.
	Champion
)

type cachePad [56]byte

// Round is one participant's role slot for one round of the tournament.
type Round struct {
	flag     uint32
	_pad     cachePad
	role     Role
	opponent *uint32
}

// Barrier holds, for each of nthr participants, a Size(nthr)-long row of
// Round slots (spec.md §3 "Tournament").
type Barrier struct {
	nthr   uint32
	rounds [][]Round
}

// State is a single participant's per-round private state.
type State struct {
	sense uint32
	vpid  uint32
}

// Size returns ceil(log2(nthr)) + 1, the number of rounds (levels) in a
// tournament barrier for nthr participants.
func Size(nthr uint32) (uint32, error) {
	log, err := bitutil.Log2Ceil(nthr)
	if err != nil {
		return 0, err
	}
	return log + 1, nil
}

// New builds a tournament barrier for nthr participants and assigns every
// participant's static per-round role, exactly per spec.md §4.5.
func New(nthr uint32) *Barrier {
	barrierassert.Truef(nthr > 0, "tournament.New: nthr must be > 0")
	size, err := Size(nthr)
	if err != nil {
		panic(err)
	}

	b := &Barrier{nthr: nthr}
	b.rounds = make([][]Round, nthr)
	for i := uint32(0); i < nthr; i++ {
		b.rounds[i] = make([]Round, size)
	}

	for i := uint32(0); i < nthr; i++ {
		b.rounds[i][0].role = Dropout

		twok, twokm1 := uint32(2), uint32(1)
		for k := uint32(1); k < size; k, twokm1, twok = k+1, twok, twok<<1 {
			imod2k := i & (twok - 1)

			if imod2k == 0 {
				if i+twokm1 < nthr && twok < nthr {
					b.rounds[i][k].role = Winner
				} else if i+twokm1 >= nthr {
					b.rounds[i][k].role = Bye
				}
			}
			if imod2k == twokm1 {
				b.rounds[i][k].role = Loser
			} else if i == 0 && twok >= nthr {
				b.rounds[i][k].role = Champion
			}

			switch b.rounds[i][k].role {
			case Loser:
				b.rounds[i][k].opponent = &b.rounds[i-twokm1][k].flag
			case Winner, Champion:
				if i+twokm1 < nthr {
					b.rounds[i][k].opponent = &b.rounds[i+twokm1][k].flag
				}
			}
		}
	}
	return b
}

// NewState returns a fresh per-participant state for participant vpid
// (0 <= vpid < nthr), with private sense all-ones, per spec.md §3
// "Tournament".
func NewState(vpid uint32) *State {
	return &State{sense: ^uint32(0), vpid: vpid}
}

// Arrive runs one arrival-then-wakeup pass of the tournament for the
// participant identified by st.
func (b *Barrier) Arrive(st *State) {
	barrierassert.Truef(st.vpid < b.nthr, "tournament.Arrive: vpid %d out of range [0,%d)", st.vpid, b.nthr)

	if b.nthr == 1 {
		// A single participant has no opponent and nothing to wait for;
		// Size(1) yields just the round-0 Dropout sentinel, so there is no
		// round-1 slot to dispatch on.
		st.sense = ^st.sense
		return
	}

	row := b.rounds[st.vpid]
	sense := st.sense

	round := 1
	for ; ; round++ {
		r := &row[round]
		switch r.role {
		case Bye:
			continue
		case Champion:
			for atomics.LoadUint(&r.flag) != sense {
				atomics.Stall()
			}
			if r.opponent != nil {
				atomics.StoreUint(r.opponent, sense)
			}
			goto wakeup
		case Loser:
			atomics.StoreUint(r.opponent, sense)
			for atomics.LoadUint(&r.flag) != sense {
				atomics.Stall()
			}
			goto wakeup
		case Winner:
			for atomics.LoadUint(&r.flag) != sense {
				atomics.Stall()
			}
		}
	}

wakeup:
	for round--; ; round-- {
		r := &row[round]
		switch r.role {
		case Dropout:
			st.sense = ^st.sense
			return
		case Winner:
			atomics.StoreUint(r.opponent, sense)
		}
	}
}
