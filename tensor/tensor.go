// Package tensor is the public, user-facing handle over internal/core's
// TensorContent: the functional-option constructor surface plus thin
// delegation for the TensorCore lifecycle. A *TensorCore already aliases
// the same content across every copy of the handle — Go's pointer
// semantics give a shared reference for free — so this package adds no
// ref-counting of its own.
package tensor

import (
	"github.com/oicirtap/taco/backend"
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/core"
	"github.com/oicirtap/taco/internal/notation"
)

// Dimension describes one logical mode's runtime size.
type Dimension = core.Dimension

// Option configures an optional aspect of a TensorCore at construction
// time. See WithName, WithAllocSize.
type Option = core.Option

// WithName sets the tensor's diagnostic name.
func WithName(name string) Option { return core.WithName(name) }

// WithAllocSize overrides the default allocation hint (core.DefaultAllocSize)
// handed to lowered kernel buffers. Must be a power of two.
func WithAllocSize(n int) Option { return core.WithAllocSize(n) }

// TensorCore is the public tensor handle: a tensor's name, dtype, shape,
// storage, and (once set) index-expression assignment, all reachable
// through the wrapped *core.TensorContent.
type TensorCore struct {
	content *core.TensorContent
}

// New builds an empty tensor: order == len(dims) == format.GetOrder(),
// backed by kb for any assignment later installed via Set.
func New(dt dtype.Datatype, dims []Dimension, f *format.Format, kb backend.KernelBackend, opts ...Option) (*TensorCore, error) {
	c, err := core.New(dt, dims, f, kb, opts...)
	if err != nil {
		return nil, err
	}
	return &TensorCore{content: c}, nil
}

// Name returns the tensor's diagnostic name.
func (t *TensorCore) Name() string { return t.content.Name() }

// Datatype returns the tensor's component type.
func (t *TensorCore) Datatype() dtype.Datatype { return t.content.Datatype() }

// Dims returns the tensor's per-mode dimensions, in logical order.
func (t *TensorCore) Dims() []Dimension { return t.content.Dims() }

// Format returns the tensor's current Format. Do not cache this across
// a Transpose or a Compile that triggers the rewriter on this tensor:
// both can replace it.
func (t *TensorCore) Format() *format.Format { return t.content.Format() }

// SetOnDuplicate installs the callback Pack invokes once per coordinate
// a later insert overwrote.
func (t *TensorCore) SetOnDuplicate(f func(coord []int32)) { t.content.SetOnDuplicate(f) }

// Insert appends a (coord, value) record to the staging buffer.
func (t *TensorCore) Insert(coord []int32, value any) error { return t.content.Insert(coord, value) }

// Reserve grows the staging buffer's capacity by n records.
func (t *TensorCore) Reserve(n int) { t.content.Reserve(n) }

// Pack consumes the staging buffer, idempotently.
func (t *TensorCore) Pack() error { return t.content.Pack() }

// Set installs indices(rhs) as this tensor's assignment, with op
// defaulting to add for any implicit reduction. Replaces any prior
// assignment and invalidates cached kernels.
func (t *TensorCore) Set(indices []notation.IndexVar, rhs notation.Expr, op ...notation.BinaryOp) error {
	return t.content.SetAssignment(indices, rhs, op...)
}

// Access returns an index-expression node reading t at indices, for use
// as an operand in another tensor's Set call.
func (t *TensorCore) Access(indices ...notation.IndexVar) *notation.Access {
	return &notation.Access{Tensor: t.content, Indices: indices, DType: t.content.Datatype()}
}

// Compile canonicalizes and lowers the installed assignment, caching an
// assemble and a compute kernel.
func (t *TensorCore) Compile(assembleWhileCompute bool) error { return t.content.Compile(assembleWhileCompute) }

// Assemble invokes the cached assemble kernel.
func (t *TensorCore) Assemble() error { return t.content.Assemble() }

// Compute invokes the cached compute kernel.
func (t *TensorCore) Compute() error { return t.content.Compute() }

// Evaluate runs compile, then assemble (unless fused), then compute.
func (t *TensorCore) Evaluate() error { return t.content.Evaluate() }

// SyncValues brings storage up to date with any pending insert or
// assignment. Idempotent.
func (t *TensorCore) SyncValues() error { return t.content.SyncValues() }

// GetValue syncs, then returns the value at coord, or the component's
// zero value when coord is absent.
func (t *TensorCore) GetValue(coord []int) (any, error) { return t.content.GetValue(coord) }

// Zero empties values and index.
func (t *TensorCore) Zero() { t.content.Zero() }

// SetAllocSize overrides the allocation hint handed to lowered kernel
// buffers. s must be a power of two.
func (t *TensorCore) SetAllocSize(s int) error { return t.content.SetAllocSize(s) }

// Equal reports whether a and b have the same component type, order,
// and dimensions, and the same surviving (coord, value) pairs once
// zero-valued entries are skipped, floats compared within a relative
// tolerance of 1e-6. Both tensors are synced first.
func Equal(a, b *TensorCore) (bool, error) { return core.Equal(a.content, b.content) }

// Transpose returns a new tensor holding the same logical data as t but
// with dims permuted by ordering and stored as f.
func (t *TensorCore) Transpose(ordering []int, f *format.Format) (*TensorCore, error) {
	c, err := t.content.Transpose(ordering, f)
	if err != nil {
		return nil, err
	}
	return &TensorCore{content: c}, nil
}

// Iterator walks a tensor's current contents in storage order, yielding
// (coord, value) pairs in logical coordinate order.
type Iterator struct {
	it *core.Iterator
}

// Iterate syncs t, then returns an Iterator over its current contents.
func (t *TensorCore) Iterate() (*Iterator, error) {
	it, err := t.content.Iterate()
	if err != nil {
		return nil, err
	}
	return &Iterator{it: it}, nil
}

// Next advances to the next stored element, returning false once
// exhausted.
func (it *Iterator) Next() bool { return it.it.Next() }

// Coord returns the current element's coordinate in logical mode order.
func (it *Iterator) Coord() []int { return it.it.Coord() }

// Value returns the current element's value.
func (it *Iterator) Value() any { return it.it.Value() }
