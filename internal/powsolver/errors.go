package powsolver

import "errors"

// Sentinel errors returned by Solver.Solve, mirroring the plain
// errors.New()-and-return style the teacher repo uses throughout
// client.go and powlib.go — no custom error type hierarchy.
var (
	// ErrInvalidDifficulty is returned when D falls outside 0-40.
	ErrInvalidDifficulty = errors.New("powsolver: difficulty out of range (0-40)")

	// ErrExhausted is returned if a worker's counter wraps past
	// math.MaxUint64 without any worker publishing a result. Given
	// D <= 40, this is unreachable in practice but the code path
	// must exist per spec.md §4.2 and §7.
	ErrExhausted = errors.New("powsolver: nonce space exhausted without a solution")

	// ErrHashFailure wraps an unexpected failure from the underlying
	// hash primitive's binary (un)marshaling of its internal state.
	ErrHashFailure = errors.New("powsolver: hash primitive failure")
)
