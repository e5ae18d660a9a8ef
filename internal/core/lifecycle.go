package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/oicirtap/taco/backend"
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/internal/notation"
	"github.com/oicirtap/taco/internal/pack"
	"github.com/oicirtap/taco/internal/storage"
	"github.com/oicirtap/taco/internal/transpose"
)

// Insert appends a (coord, value) record to the staging buffer: append,
// then notify dependents that they are now stale, then mark needs_pack.
func (c *TensorContent) Insert(coord []int32, value any) error {
	if len(coord) != len(c.dims) {
		return errors.Wrapf(ErrArityMismatch, "insert: %d coords for order %d", len(coord), len(c.dims))
	}
	if err := c.buf.Insert(coord, value); err != nil {
		return errors.Wrap(err, "core: insert")
	}
	c.notifyDependents()
	c.needsPack = true
	return nil
}

// Reserve grows the staging buffer's capacity by n records.
func (c *TensorContent) Reserve(n int) { c.buf.Reserve(n) }

// notifyDependents marks every tensor that reads c as needing
// recomputation, without eagerly recomputing it — read freshness is
// enforced lazily, by SyncValues, the same way needs_pack already is.
// The dependents list itself is never cleared here: it names a
// standing "reads c" relationship that survives across many mutations.
func (c *TensorContent) notifyDependents() {
	for _, id := range c.dependents {
		d, ok := lookup(id)
		if !ok || d.assignment == nil || d.needsCompute {
			continue
		}
		d.needsCompute = true
		d.notifyDependents()
	}
}

// Pack consumes the staging buffer via internal/pack, idempotently:
// calling Pack twice with no intervening insert is a no-op on
// observable state.
func (c *TensorContent) Pack() error {
	if !c.needsPack {
		return nil
	}
	s, err := pack.Pack(c.buf, c.format, pack.Options{OnDuplicate: c.onDuplicate})
	if err != nil {
		return errors.Wrap(err, "core: pack")
	}
	c.storage = s
	c.needsPack = false
	return nil
}

// SetAssignment binds indices(rhs) to this tensor: it registers this
// tensor as a dependent of every unique rhs operand,
// forces each to sync so this assignment starts from current values,
// then installs the assignment and flips needs_pack/needs_compute.
func (c *TensorContent) SetAssignment(indices []notation.IndexVar, rhs notation.Expr, op ...notation.BinaryOp) error {
	lhs := &notation.Access{Tensor: c, Indices: indices, DType: c.dtype}
	assignment := notation.NewAssignment(lhs, rhs, op...)

	for _, acc := range backend.Operands(assignment)[1:] {
		operand, ok := acc.Tensor.(*TensorContent)
		if !ok {
			continue
		}
		operand.addDependent(c.id)
		if err := operand.SyncValues(); err != nil {
			return err
		}
	}

	c.assignment = assignment
	c.compiled = false
	c.needsPack = false
	c.needsCompute = true
	return nil
}

// Compile canonicalizes the assignment's implicit reductions, runs the
// transpose rewriter, and lowers both an assemble and a compute kernel
// through the backend, caching both handles.
func (c *TensorContent) Compile(assembleWhileCompute bool) error {
	if c.assignment == nil {
		return errors.Wrapf(ErrCompileWithoutExpression, "compile: tensor %q", c.name)
	}

	canon, err := notation.MakeReductionNotation(c.assignment)
	if err != nil {
		return errors.Wrap(err, "core: compile: reduction notation")
	}
	rewritten, err := transpose.Rewrite(transposer{}, canon)
	if err != nil {
		return errors.Wrap(err, "core: compile: transpose rewrite")
	}
	c.assignment = rewritten

	computeProps := backend.Compute
	if assembleWhileCompute {
		computeProps |= backend.Assemble
	}

	aHandle, err := c.backend.LowerAssemble(rewritten, fmt.Sprintf("%s_assemble", c.id), backend.Assemble, c.allocSize)
	if err != nil {
		return errors.Wrap(err, "core: compile: lower_assemble")
	}
	cHandle, err := c.backend.LowerCompute(rewritten, fmt.Sprintf("%s_compute", c.id), computeProps, c.allocSize)
	if err != nil {
		return errors.Wrap(err, "core: compile: lower_compute")
	}
	if err := c.backend.AddFunction(aHandle); err != nil {
		return errors.Wrap(err, "core: compile: add_function(assemble)")
	}
	if err := c.backend.AddFunction(cHandle); err != nil {
		return errors.Wrap(err, "core: compile: add_function(compute)")
	}
	if err := c.backend.CompileModule(); err != nil {
		return errors.Wrap(err, "core: compile: compile_module")
	}

	c.assembleFunc, c.computeFunc = aHandle, cHandle
	c.fusedAssembleWhileCompute = assembleWhileCompute
	c.compiled = true
	return nil
}

// Assemble invokes the cached assemble kernel and unpacks its result
// into storage.
func (c *TensorContent) Assemble() error {
	if !c.compiled {
		return errors.Wrapf(ErrAssembleWithoutCompile, "assemble: tensor %q", c.name)
	}
	tensors, err := c.wireOperands()
	if err != nil {
		return err
	}
	if err := c.backend.Invoke(c.assembleFunc.Name(), tensors); err != nil {
		return errors.Wrap(err, "core: assemble: invoke")
	}
	return c.absorbWire(tensors[0])
}

// Compute invokes the cached compute kernel and unpacks its result into
// storage, resetting needs_compute.
func (c *TensorContent) Compute() error {
	if !c.compiled {
		return errors.Wrapf(ErrComputeWithoutCompile, "compute: tensor %q", c.name)
	}
	tensors, err := c.wireOperands()
	if err != nil {
		return err
	}
	if err := c.backend.Invoke(c.computeFunc.Name(), tensors); err != nil {
		return errors.Wrap(err, "core: compute: invoke")
	}
	if err := c.absorbWire(tensors[0]); err != nil {
		return err
	}
	c.needsCompute = false
	return nil
}

// Evaluate runs compile, then assemble (unless the compile already
// fused it into compute), then compute — the full first-read path.
func (c *TensorContent) Evaluate() error {
	if c.assignment == nil {
		return errors.Wrapf(ErrCompileWithoutExpression, "evaluate: tensor %q", c.name)
	}
	if err := c.Compile(false); err != nil {
		return err
	}
	if !c.fusedAssembleWhileCompute {
		if err := c.Assemble(); err != nil {
			return err
		}
	}
	return c.Compute()
}

// SyncValues is the mutation-discipline entry point every read goes
// through: it guarantees a read never returns stale values. Idempotent:
// a tensor with neither flag set is a no-op.
func (c *TensorContent) SyncValues() error {
	switch {
	case c.needsPack:
		return c.Pack()
	case c.needsCompute:
		return c.Evaluate()
	default:
		return nil
	}
}

// GetValue syncs, then scans storage in iteration order for coord,
// returning the component's zero value when absent.
func (c *TensorContent) GetValue(coord []int) (any, error) {
	if len(coord) != len(c.dims) {
		return nil, errors.Wrapf(ErrArityMismatch, "get_value: %d coords for order %d", len(coord), len(c.dims))
	}
	for i, x := range coord {
		if x < 0 || (c.dims[i].Size >= 0 && x >= c.dims[i].Size) {
			return nil, errors.Wrapf(ErrOutOfBounds, "get_value: coord[%d]=%d, dim=%d", i, x, c.dims[i].Size)
		}
	}
	it, err := c.Iterate()
	if err != nil {
		return nil, err
	}
	for it.Next() {
		if coordEqual(it.Coord(), coord) {
			return it.Value(), nil
		}
	}
	return zeroValue(c.dtype), nil
}

// Zero empties values and index, clearing needs_pack/needs_compute.
func (c *TensorContent) Zero() {
	c.storage.Release()
	c.storage = storage.New(c.format)
	c.buf.Clear()
	c.needsPack = false
	c.needsCompute = false
}

// SetAllocSize overrides the allocation hint handed to lowered kernel
// buffers. s must be a power of two.
func (c *TensorContent) SetAllocSize(s int) error {
	if !isPowerOfTwo(s) {
		return errors.Wrapf(ErrInvalidAllocSize, "set_alloc_size: %d", s)
	}
	c.allocSize = s
	return nil
}

// wireOperands builds the []*backend.TacoTensorT slice Invoke expects,
// in backend.Operands(c.assignment) order: lhs first (shape-only if this
// is the assemble call, since its storage has not been produced yet),
// then every rhs operand, each synced before being converted.
func (c *TensorContent) wireOperands() ([]*backend.TacoTensorT, error) {
	accesses := backend.Operands(c.assignment)
	out := make([]*backend.TacoTensorT, len(accesses))
	for i, acc := range accesses {
		operand, ok := acc.Tensor.(*TensorContent)
		invariant(ok, "operand tensor is not a *TensorContent")
		if i > 0 {
			if err := operand.SyncValues(); err != nil {
				return nil, err
			}
		}
		w, err := backend.ToWire(operand.storage, operand.dimSizes(), acc.DType)
		if err != nil {
			return nil, errors.Wrap(err, "core: wire_operands")
		}
		out[i] = w
	}
	return out, nil
}

// absorbWire reconstructs this tensor's storage, format, and dimension
// sizes from a wire struct a kernel invocation wrote into.
func (c *TensorContent) absorbWire(w *backend.TacoTensorT) error {
	s, f, dims, err := backend.FromWire(w, c.dtype)
	if err != nil {
		return errors.Wrap(err, "core: absorb_wire")
	}
	c.storage.Release()
	c.storage = s
	c.format = f
	for i, d := range dims {
		c.dims[i].Size = d
	}
	return nil
}

func coordEqual(a []int, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func zeroValue(dt dtype.Datatype) any {
	return storage.NewArray(dt, 1).At(0)
}
