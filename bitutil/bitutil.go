// Package bitutil provides the two bit tricks spec.md §2.2 names as shared
// leaf-level helpers: rounding up to the next power of two, and an integer
// log2. Both are lifted from the classic smearing/rounding idioms in
// original_source/src/ck_barrier.c (ck_barrier_internal_log,
// ck_barrier_internal_power_2), which in turn credit Sean Eron Anderson's
// "Bit Twiddling Hacks".
package bitutil

import "fmt"

// NextPow2 rounds n up to the next power of two. NextPow2(0) is 0;
// NextPow2(1) is 1.
func NextPow2(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	v := n - 1
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}

// Log2 returns floor(log2(v)) for a power-of-two v, via the parallel bit
// smear from ck_barrier_internal_log. Behavior for a non-power-of-two v is
// unspecified; callers in this module always pass NextPow2's result.
func Log2(v uint32) uint32 {
	b := [5]uint32{0xAAAAAAAA, 0xCCCCCCCC, 0xF0F0F0F0, 0xFF00FF00, 0xFFFF0000}

	var r uint32
	if v&b[0] != 0 {
		r = 1
	}
	for i := 4; i > 0; i-- {
		var bit uint32
		if v&b[i] != 0 {
			bit = 1
		}
		r |= bit << uint(i)
	}
	return r
}

// Log2Ceil returns ceil(log2(n)), i.e. Log2(NextPow2(n)) — the round count
// spec.md §2.2 defines and that dissemination (§4.4) and tournament (§4.5)
// both depend on. n == 0 has no defined round count and is rejected with an
// error; this is the one place in the module where a caller-supplied value,
// rather than a programmer invariant, is validated with an error return
// instead of a debug assertion (see barrierassert and SPEC_FULL.md §3).
func Log2Ceil(n uint32) (uint32, error) {
	if n == 0 {
		return 0, fmt.Errorf("bitutil: Log2Ceil(0) is undefined")
	}
	return Log2(NextPow2(n)), nil
}
