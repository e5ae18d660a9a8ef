// Package core implements TensorContent, the shared payload behind the
// public tensor.TensorCore handle, and its compile -> assemble -> compute
// lifecycle. A TensorContent is itself the shared reference every handle
// aliases: in Go, a *TensorContent already aliases across every handle
// that holds it, so the public tensor package needs no separate
// ref-counting wrapper — it only adds the functional-option constructor
// surface.
package core

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/oicirtap/taco/backend"
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/coordbuf"
	"github.com/oicirtap/taco/internal/notation"
	"github.com/oicirtap/taco/internal/storage"
)

// Dimension describes one logical mode's runtime size, plus the
// ordered/unique predicates a mode's storage format can report. Size < 0
// means unbound until the tensor's first pack; once packed, a
// non-negative dims value must be strictly positive.
type Dimension struct {
	Size            int
	Ordered, Unique bool
}

// TensorContent is the shared payload of a tensor: name, dtype,
// dimensions, storage, the staged insert buffer, an
// optional assignment, cached kernel handles, the needs_pack/needs_compute
// flags, and a dependents list resolved indirectly through the package
// arena rather than held as owning references.
type TensorContent struct {
	id     uuid.UUID
	name   string
	dtype  dtype.Datatype
	dims   []Dimension
	format *format.Format

	storage *storage.Storage
	buf     *coordbuf.Buffer

	assignment               *notation.Assignment
	compiled                 bool
	fusedAssembleWhileCompute bool
	assembleFunc             backend.FuncHandle
	computeFunc              backend.FuncHandle

	needsPack    bool
	needsCompute bool

	allocSize   int
	backend     backend.KernelBackend
	dependents  []uuid.UUID
	onDuplicate func(coord []int32)
}

// New builds an empty TensorContent: order == len(dims) == format order,
// with both needs_pack and needs_compute starting false.
func New(dt dtype.Datatype, dims []Dimension, f *format.Format, kb backend.KernelBackend, opts ...Option) (*TensorContent, error) {
	if len(dims) != f.GetOrder() {
		return nil, errors.Wrapf(ErrArityMismatch, "new: %d dims for format order %d", len(dims), f.GetOrder())
	}
	o := &buildOptions{allocSize: DefaultAllocSize}
	for _, opt := range opts {
		opt(o)
	}
	if !isPowerOfTwo(o.allocSize) {
		return nil, errors.Wrapf(ErrInvalidAllocSize, "new: %d", o.allocSize)
	}

	c := &TensorContent{
		id:        uuid.New(),
		name:      o.name,
		dtype:     dt,
		dims:      append([]Dimension(nil), dims...),
		format:    f,
		storage:   storage.New(f),
		buf:       coordbuf.New(len(dims), dt),
		allocSize: o.allocSize,
		backend:   kb,
	}
	register(c)
	return c, nil
}

// Name returns the tensor's diagnostic name.
func (c *TensorContent) Name() string { return c.name }

// Datatype returns the tensor's component type.
func (c *TensorContent) Datatype() dtype.Datatype { return c.dtype }

// Dims returns the tensor's per-mode dimensions, in logical order.
func (c *TensorContent) Dims() []Dimension { return append([]Dimension(nil), c.dims...) }

// Format returns the tensor's current Format. Transpose and withModeOrdering
// both replace this, so callers must not cache it across those calls.
func (c *TensorContent) Format() *format.Format { return c.format }

// TensorName implements notation.TensorRef.
func (c *TensorContent) TensorName() string { return c.name }

// ModeOrdering implements notation.TensorRef, consulted by the transpose
// rewriter.
func (c *TensorContent) ModeOrdering() []int { return c.format.GetModeOrdering() }

// SetOnDuplicate installs the callback pack() invokes once per
// coordinate a later insert overwrites: an observable, non-fatal
// warning rather than an error, since a repeated coordinate is
// last-write-wins by design, not a corruption.
func (c *TensorContent) SetOnDuplicate(f func(coord []int32)) { c.onDuplicate = f }

func (c *TensorContent) dimSizes() []int {
	out := make([]int, len(c.dims))
	for i, d := range c.dims {
		out[i] = d.Size
	}
	return out
}

func (c *TensorContent) addDependent(id uuid.UUID) {
	for _, d := range c.dependents {
		if d == id {
			return
		}
	}
	c.dependents = append(c.dependents, id)
}
