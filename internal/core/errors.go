package core

import "github.com/pkg/errors"

// Sentinel error kinds for the user-facing failure modes this package
// raises. Each is wrapped with context via errors.Wrap/Wrapf at the
// point it is raised, so a caller can still errors.Is down to the
// sentinel.
var (
	ErrArityMismatch            = errors.New("core: coordinate arity mismatch")
	ErrTypeMismatch             = errors.New("core: value type mismatch")
	ErrOutOfBounds              = errors.New("core: coordinate out of bounds")
	ErrCompileWithoutExpression = errors.New("core: compile without an assignment")
	ErrAssembleWithoutCompile   = errors.New("core: assemble without compile")
	ErrComputeWithoutCompile    = errors.New("core: compute without compile")
	ErrUnsupported              = errors.New("core: unsupported mode kind")
	// ErrInvalidAllocSize covers set_alloc_size's own precondition ("s is
	// a power of two"): it still needs a reportable failure mode, so this
	// module adds one rather than silently rounding.
	ErrInvalidAllocSize = errors.New("core: alloc size must be a power of two")
)

// invariant panics with msg if cond is false — reserved for states this
// module's own bookkeeping should make unreachable, never for a
// caller-triggerable error.
func invariant(cond bool, msg string) {
	if !cond {
		panic("core: invariant violation: " + msg)
	}
}
