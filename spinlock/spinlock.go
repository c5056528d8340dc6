// Package spinlock implements the single collaborator spec.md §6 names
// explicitly: the lock a combining-tree barrier (package combining) takes
// only while growing its tree (spec.md §4.3, §5 — "held only during tree
// growth; runtime arrival is lock-free"). It is a test-and-test-and-set
// spinlock built from a CAS retry loop, the same shape as the teacher's
// (dijkstracula/go-ilock) register* functions: load the current word,
// compute the desired next value, and retry the compare-and-swap until it
// sticks.
package spinlock

import (
	"sync/atomic"

	"github.com/dijkstracula/go-barrier/atomics"
)

const (
	unlocked uint32 = 0
	locked   uint32 = 1
)

// Spinlock is a non-reentrant, unfair spinlock. The zero value is unlocked
// and ready to use.
type Spinlock struct {
	state uint32
}

// New returns a ready-to-use, unlocked Spinlock.
func New() *Spinlock {
	return &Spinlock{}
}

// TryLock attempts to take the lock without spinning and reports whether it
// succeeded.
func (s *Spinlock) TryLock() bool {
	return atomic.CompareAndSwapUint32(&s.state, unlocked, locked)
}

// Lock spins until the lock is acquired, relaxing with atomics.Stall between
// test-and-test-and-set attempts so a contended lock does not hammer the
// cache line with CAS traffic.
func (s *Spinlock) Lock() {
	for {
		if atomics.LoadUint(&s.state) == unlocked && s.TryLock() {
			return
		}
		atomics.Stall()
	}
}

// Unlock releases the lock. Unlocking a lock not held by the caller is
// undefined, per the same precondition contract spec.md §7 sets for every
// barrier primitive.
func (s *Spinlock) Unlock() {
	atomics.StoreUint(&s.state, unlocked)
}
