// Package combining implements the software combining-tree barrier of
// spec.md §4.3: a dynamically grown tree of groups, where a thread directly
// registered at a leaf group propagates its arrival up through ancestor
// groups only when it is the last arrival its group is waiting on. The tree
// can grow online (InitGroup) under a spinlock; arrival itself is lock-free.
package combining

import (
	"github.com/dijkstracula/go-barrier/atomics"
	"github.com/dijkstracula/go-barrier/barrierassert"
	"github.com/dijkstracula/go-barrier/spinlock"
)

// cachePad separates hot, independently-contended words so that two groups
// (or a group and its parent) do not share a cache line, per spec.md §5's
// cache-line requirement.
type cachePad [56]byte

// Group is one node of the combining tree. Every participant directly
// registered at a group shares its k/count/sense; the group additionally
// expects exactly one arrival signal per attached child group, since a
// child subtree only ever propagates a single FAA into its parent per
// round (its own "last" arriver climbs; every other participant in that
// subtree spins locally without ever touching the parent).
type Group struct {
	k      uint32 // expected arrivals: directly registered threads + one per attached child group
	_pad0  cachePad
	count  uint32 // current arrival count this round, in [0, k]
	_pad1  cachePad
	sense  uint32
	_pad2  cachePad
	parent *Group
	lchild *Group
	rchild *Group
}

// Root owns the root group of a combining tree and the spinlock that
// serializes tree growth (spec.md §4.3: "only the lock serializes growth").
type Root struct {
	root *Group
	mu   *spinlock.Spinlock
}

// State is a single participant's per-round private state.
type State struct {
	sense uint32
}

// NewGroup returns a group expecting nthr directly-registered arrivals, with
// no parent or children yet. Pass nthr == 0 for a group that will only ever
// aggregate children (InitGroup increments k as children are attached).
func NewGroup(nthr uint32) *Group {
	return &Group{k: nthr}
}

// NewRoot installs root as the root of a new combining tree and returns the
// Root descriptor. root's k should already reflect the threads directly
// registered at it, if any.
func NewRoot(root *Group) *Root {
	return &Root{root: root, mu: spinlock.New()}
}

// InitGroup grows the tree by attaching g, a newly constructed group with
// nthr directly-registered threads, somewhere under the root. It performs a
// breadth-first search from the root, attempting to install g as the
// lchild, then the rchild, of each visited group in turn; the first
// successful install wins and the search stops (spec.md §4.3). The BFS
// queue itself is a local, single-goroutine structure — only r.mu
// serializes concurrent growth.
func (r *Root) InitGroup(g *Group, nthr uint32) {
	g.k = nthr
	g.count = 0
	g.sense = 0
	g.lchild, g.rchild, g.parent = nil, nil, nil

	r.mu.Lock()
	defer r.mu.Unlock()

	queue := []*Group{r.root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if node.lchild == nil {
			node.lchild = g
			g.parent = node
			node.k++
			return
		}
		if node.rchild == nil {
			node.rchild = g
			g.parent = node
			node.k++
			return
		}
		queue = append(queue, node.lchild, node.rchild)
	}
}

// NewState returns a fresh per-participant state with private sense
// all-ones, the complement of a new group's sense, so that a non-last
// arriver spins until the group's sense is flipped.
func NewState() *State {
	return &State{sense: ^uint32(0)}
}

// Arrive propagates one arrival from a participant directly registered at
// leaf, climbing the tree iteratively (spec.md §9: "may be rewritten
// iteratively"). It returns once the whole tree — leaf through root — has
// completed this round. The reset on the way back down proceeds root-to-
// leaf, matching the recursive original's unwind order (a frame's own
// store only runs after its recursive call into the parent has returned):
// a waiter gated on an intermediate group's sense must not be released
// until every ancestor up to and including the root has already reset,
// otherwise it could climb into a still-dirty ancestor on the next round.
func (r *Root) Arrive(leaf *Group, st *State) {
	barrierassert.Truef(leaf != nil, "combining.Arrive: leaf must not be nil")
	sense := st.sense

	// Climb, recording the path of groups for which this goroutine was the
	// last arrival: only those groups get reset on the way back down.
	var path []*Group
	node := leaf
	for node != nil {
		prior := atomics.FetchAddUint(&node.count, 1)
		if prior != node.k-1 {
			for sense != atomics.LoadUint(&node.sense) {
				atomics.Stall()
			}
			break
		}
		path = append(path, node)
		node = node.parent
	}

	// Unwind root-to-leaf over exactly the groups this goroutine won at, so
	// no descendant's sense flips (releasing its waiters) before every
	// ancestor has already reset.
	for i := len(path) - 1; i >= 0; i-- {
		g := path[i]
		atomics.StoreUint(&g.count, 0)
		atomics.StoreUint(&g.sense, ^atomics.LoadUint(&g.sense))
	}

	st.sense = ^st.sense
}
