// Package mcs implements the Mellor-Crummey & Scott barrier of spec.md
// §4.6: a static tree over nthr participants with a 4-ary arrival edge
// (each thread waits for the arrival of up to four children before
// signalling its parent) and a binary
// wakeup edge (each thread releases up to two children). Every thread has a
// pre-assigned slot; there is no dynamic registration, unlike combining.
package mcs

import (
	"github.com/dijkstracula/go-barrier/atomics"
	"github.com/dijkstracula/go-barrier/barrierassert"
)

type cachePad [40]byte

// Node is one participant's slot in both the arrival and wakeup trees.
type Node struct {
	parentsense   uint32
	_pad0         cachePad
	parent        *uint32
	children      [2]*uint32
	havechild     [4]uint32
	childnotready [4]uint32
	dummy         uint32
	_pad1         cachePad
}

// Barrier holds nthr pre-wired Nodes (spec.md §3 "MCS").
type Barrier struct {
	nodes []Node
}

// State is a single participant's per-round private state.
type State struct {
	sense uint32
	vpid  uint32
}

// New wires an MCS barrier for nthr participants: the 4-ary arrival tree
// (child c > 0 has parent (c-1)>>2 in slot (c-1)&3) and the binary wakeup
// tree (thread i has children 2i+1 and 2i+2), per spec.md §4.6. Every
// absent parent or child edge is wired to the owning node's own dummy word,
// which is written but never read.
func New(nthr uint32) *Barrier {
	barrierassert.Truef(nthr > 0, "mcs.New: nthr must be > 0")

	b := &Barrier{nodes: make([]Node, nthr)}
	for i := uint32(0); i < nthr; i++ {
		n := &b.nodes[i]
		for j := uint32(0); j < 4; j++ {
			if (i<<2)+j+1 < nthr {
				n.havechild[j] = ^uint32(0)
			} else {
				n.havechild[j] = 0
			}
			n.childnotready[j] = n.havechild[j]
		}

		if i == 0 {
			n.parent = &n.dummy
		} else {
			p := (i - 1) >> 2
			slot := (i - 1) & 3
			n.parent = &b.nodes[p].childnotready[slot]
		}

		if (i<<1)+1 >= nthr {
			n.children[0] = &n.dummy
		} else {
			n.children[0] = &b.nodes[(i<<1)+1].parentsense
		}
		if (i<<1)+2 >= nthr {
			n.children[1] = &n.dummy
		} else {
			n.children[1] = &b.nodes[(i<<1)+2].parentsense
		}

		n.parentsense = 0
	}
	return b
}

// NewState returns a fresh per-participant state for participant vpid
// (0 <= vpid < nthr), with private sense all-ones, per spec.md §3 "MCS".
func NewState(vpid uint32) *State {
	return &State{sense: ^uint32(0), vpid: vpid}
}

func childrenAllReady(childnotready *[4]uint32) bool {
	for i := 0; i < 4; i++ {
		if atomics.LoadUint(&childnotready[i]) != 0 {
			return false
		}
	}
	return true
}

// Arrive runs one arrival-then-wakeup pass for the participant identified
// by st, per spec.md §4.6 steps 1-6.
func (b *Barrier) Arrive(st *State) {
	barrierassert.Truef(st.vpid < uint32(len(b.nodes)), "mcs.Arrive: vpid %d out of range", st.vpid)

	n := &b.nodes[st.vpid]

	for !childrenAllReady(&n.childnotready) {
		atomics.Stall()
	}

	for j := 0; j < 4; j++ {
		atomics.StoreUint(&n.childnotready[j], n.havechild[j])
	}

	atomics.StoreUint(n.parent, 0)

	if st.vpid != 0 {
		for atomics.LoadUint(&n.parentsense) != st.sense {
			atomics.Stall()
		}
	}

	atomics.StoreUint(n.children[0], st.sense)
	atomics.StoreUint(n.children[1], st.sense)

	st.sense = ^st.sense
}
