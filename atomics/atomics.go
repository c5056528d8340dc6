// Package atomics is the barrier library's atomic-primitives layer: the
// in-module stand-in for the external `ck_pr`-style collaborator that
// spec.md §6 requires every barrier algorithm to route shared-word accesses
// through. Every barrier package touches shared state exclusively via the
// functions here; no barrier package stores a bare word that another
// goroutine may observe.
package atomics

import (
	"runtime"
	"sync/atomic"
)

// FetchAddUint atomically adds delta to *p and returns the value *p held
// immediately prior to the addition. This is the "last arriver" detector
// used by every barrier: a participant that observes prior == n-1 (or
// group.K-1) is the one responsible for resetting shared state and flipping
// sense.
func FetchAddUint(p *uint32, delta uint32) uint32 {
	return atomic.AddUint32(p, delta) - delta
}

// LoadUint is an acquire load of a shared word.
func LoadUint(p *uint32) uint32 {
	return atomic.LoadUint32(p)
}

// StoreUint is a release store of a shared word.
func StoreUint(p *uint32, v uint32) {
	atomic.StoreUint32(p, v)
}

// Stall is the CPU relax hint spec.md §2.1/§6 calls `stall()`: a cheap,
// bounded yield inside a spin-wait loop. Go has no portable pause
// instruction reachable without cgo or per-arch assembly, so Gosched is the
// idiomatic substitute — it lets the runtime scheduler run another
// goroutine on this OS thread for a tick, which is the same goal
// `ck_pr_stall()` serves on a single core. This is not a substitute for
// blocking/futex waiting (spec.md's Non-goals exclude that entirely); the
// loop still spins, it just yields the processor between iterations.
func Stall() {
	runtime.Gosched()
}
