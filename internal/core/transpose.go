package core

import (
	"github.com/pkg/errors"

	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/notation"
)

// transposer adapts TensorContent's pack-based copy machinery to the
// transpose.Transposer interface the rewriter in internal/transpose
// calls during Compile. It holds no state: the ref it is handed already
// carries everything it needs.
type transposer struct{}

// Transpose implements transpose.Transposer: it returns a copy of ref
// whose storage mode-ordering is requiredOrdering, with the same
// logical shape. Only internal/core produces TensorContent values, so
// the type assertion here is a structural invariant, not user input.
func (transposer) Transpose(ref notation.TensorRef, requiredOrdering []int) (notation.TensorRef, error) {
	c, ok := ref.(*TensorContent)
	invariant(ok, "transpose rewriter handed a non-*TensorContent ref")
	return c.withModeOrdering(requiredOrdering)
}

// withModeOrdering returns a copy of c whose storage visits the same
// logical modes in requiredOrdering instead of c's current ordering —
// same ModeFormat per logical mode, same logical shape, different
// storage-level permutation. Used internally by the transpose rewriter;
// unlike the public Transpose, it never changes which modes are
// Dense/Sparse.
func (c *TensorContent) withModeOrdering(requiredOrdering []int) (*TensorContent, error) {
	f, err := format.New(c.format.GetModeFormatPacks(), format.WithOrdering(requiredOrdering...), format.WithArrayTypes(c.format.GetLevelArrayTypes()...))
	if err != nil {
		return nil, errors.Wrap(err, "core: with_mode_ordering")
	}
	return c.copyInto(f, identityPermutation(len(c.dims)))
}

// Transpose returns a new tensor holding the same logical data as c
// but with dims permuted by ordering (ordering[i] names which of c's
// logical modes becomes the new tensor's mode i) and stored as f. This
// is a genuine logical-shape change, unlike withModeOrdering: it is
// pack-based rather than a zero-copy view because a compressed level
// has no fixed stride to reinterpret (SUPPLEMENTED FEATURES).
func (c *TensorContent) Transpose(ordering []int, f *format.Format) (*TensorContent, error) {
	if len(ordering) != len(c.dims) {
		return nil, errors.Wrapf(ErrArityMismatch, "transpose: %d-length ordering for order %d", len(ordering), len(c.dims))
	}
	return c.copyInto(f, ordering)
}

// copyInto syncs c, then iterates its current contents and re-inserts
// each (coord, value) into a freshly built TensorContent using format f,
// permuting each coordinate by ordering first (ordering[i] names which
// of c's logical modes supplies the new tensor's mode i).
func (c *TensorContent) copyInto(f *format.Format, ordering []int) (*TensorContent, error) {
	newDims := make([]Dimension, len(ordering))
	for i, logicalMode := range ordering {
		newDims[i] = c.dims[logicalMode]
	}

	dst, err := New(c.dtype, newDims, f, c.backend, WithName(c.name), WithAllocSize(c.allocSize))
	if err != nil {
		return nil, err
	}

	it, err := c.Iterate()
	if err != nil {
		return nil, err
	}
	for it.Next() {
		src := it.Coord()
		coord := make([]int32, len(ordering))
		for i, logicalMode := range ordering {
			coord[i] = int32(src[logicalMode])
		}
		if err := dst.Insert(coord, it.Value()); err != nil {
			return nil, errors.Wrap(err, "core: copy_into")
		}
	}
	if err := dst.Pack(); err != nil {
		return nil, err
	}
	return dst, nil
}

func identityPermutation(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
