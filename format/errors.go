package format

import "github.com/pkg/errors"

// UnsupportedMode is returned when a ModeFormat names a storage kind this
// module does not implement. Room is left for modes beyond Dense/Sparse;
// constructing one here is a user error, not a panic.
var UnsupportedMode = errors.New("format: unsupported mode kind")

// Error wraps a Format construction failure. Format.New collects every
// violation it finds (a bad ordering and an unsupported mode can both be
// present at once) rather than stopping at the first, so Error is built
// from a multierr-aggregated cause.
type Error struct {
	cause error
}

func (e *Error) Error() string { return "format: " + e.cause.Error() }

// Unwrap lets errors.Is/errors.As see through to UnsupportedMode and the
// other causes multierr aggregated.
func (e *Error) Unwrap() error { return e.cause }
