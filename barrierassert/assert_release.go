//go:build !barrierdebug

package barrierassert

// Truef is a no-op in release builds (no barrierdebug tag): preconditions
// are documented, not enforced, matching spec.md §7's contract that a
// violation is undefined behavior, never a reported error.
func Truef(cond bool, format string, args ...any) {
}
