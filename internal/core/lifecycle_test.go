package core

import (
	"errors"
	"testing"

	"github.com/oicirtap/taco/backend/refkernel"
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/notation"
)

func newDenseVector(t *testing.T, size int, kb *refkernel.Backend) *TensorContent {
	t.Helper()
	f, err := format.DenseFormat(size)
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(dtype.F64, []Dimension{{Size: size, Ordered: true, Unique: true}}, f, kb)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// TestInsertMarksNeedsPack checks that Insert leaves the staged record in
// the buffer and flags the tensor as needing a pack, without packing
// eagerly.
func TestInsertMarksNeedsPack(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	if c.needsPack {
		t.Fatal("fresh tensor already needsPack")
	}
	if err := c.Insert([]int32{0}, 1.0); err != nil {
		t.Fatal(err)
	}
	if !c.needsPack {
		t.Error("needsPack = false after Insert, want true")
	}
}

// TestPackIsNoOpWhenNotNeeded checks that Pack, called with needsPack
// already false, returns nil without touching storage.
func TestPackIsNoOpWhenNotNeeded(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	before := c.storage
	if err := c.Pack(); err != nil {
		t.Fatal(err)
	}
	if c.storage != before {
		t.Error("Pack replaced storage when needsPack was already false")
	}
}

// TestPackClearsNeedsPack checks that a successful Pack resets needsPack.
func TestPackClearsNeedsPack(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	if err := c.Insert([]int32{1}, 5.0); err != nil {
		t.Fatal(err)
	}
	if err := c.Pack(); err != nil {
		t.Fatal(err)
	}
	if c.needsPack {
		t.Error("needsPack still true after a successful Pack")
	}
}

// TestSetAssignmentResetsLifecycleFlags checks SetAssignment's state
// transition: compiled clears, needsPack clears (an assignment
// supersedes any staged inserts), needsCompute sets.
func TestSetAssignmentResetsLifecycleFlags(t *testing.T) {
	kb := refkernel.New()
	b := newDenseVector(t, 3, kb)
	if err := b.Insert([]int32{0}, 1.0); err != nil {
		t.Fatal(err)
	}
	if err := b.Pack(); err != nil {
		t.Fatal(err)
	}

	a := newDenseVector(t, 3, kb)
	if err := a.Insert([]int32{0}, 9.0); err != nil {
		t.Fatal(err)
	}
	if !a.needsPack {
		t.Fatal("setup: expected needsPack before SetAssignment")
	}

	vi := notation.NewVar("i")
	rhs := &notation.Access{Tensor: b, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	if err := a.SetAssignment([]notation.IndexVar{vi}, rhs); err != nil {
		t.Fatal(err)
	}
	if a.compiled {
		t.Error("compiled = true immediately after SetAssignment")
	}
	if a.needsPack {
		t.Error("needsPack still true after SetAssignment (assignment supersedes staged inserts)")
	}
	if !a.needsCompute {
		t.Error("needsCompute = false after SetAssignment, want true")
	}
}

// TestCompileWithoutAssignmentErrors checks that Compile refuses to run
// on a tensor with no assignment installed.
func TestCompileWithoutAssignmentErrors(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	err := c.Compile(false)
	if !errors.Is(err, ErrCompileWithoutExpression) {
		t.Errorf("Compile without assignment: err = %v, want wrapping ErrCompileWithoutExpression", err)
	}
}

// TestAssembleWithoutCompileErrors checks that Assemble refuses to run
// before Compile has cached a kernel handle.
func TestAssembleWithoutCompileErrors(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	err := c.Assemble()
	if !errors.Is(err, ErrAssembleWithoutCompile) {
		t.Errorf("Assemble without compile: err = %v, want wrapping ErrAssembleWithoutCompile", err)
	}
}

// TestComputeWithoutCompileErrors checks that Compute refuses to run
// before Compile has cached a kernel handle.
func TestComputeWithoutCompileErrors(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	err := c.Compute()
	if !errors.Is(err, ErrComputeWithoutCompile) {
		t.Errorf("Compute without compile: err = %v, want wrapping ErrComputeWithoutCompile", err)
	}
}

// TestSyncValuesRunsPackWhenNeeded checks that SyncValues dispatches to
// Pack for a tensor with staged inserts and no assignment.
func TestSyncValuesRunsPackWhenNeeded(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	if err := c.Insert([]int32{2}, 7.0); err != nil {
		t.Fatal(err)
	}
	if err := c.SyncValues(); err != nil {
		t.Fatal(err)
	}
	if c.needsPack {
		t.Error("needsPack still true after SyncValues")
	}
}

// TestSyncValuesRunsEvaluateWhenNeeded checks that SyncValues dispatches
// to Evaluate (compile+assemble+compute) for a tensor with a pending
// assignment, ending with compiled=true and needsCompute=false.
func TestSyncValuesRunsEvaluateWhenNeeded(t *testing.T) {
	kb := refkernel.New()
	b := newDenseVector(t, 3, kb)
	if err := b.Insert([]int32{0}, 4.0); err != nil {
		t.Fatal(err)
	}
	if err := b.Insert([]int32{2}, 6.0); err != nil {
		t.Fatal(err)
	}
	if err := b.Pack(); err != nil {
		t.Fatal(err)
	}

	a := newDenseVector(t, 3, kb)
	vi := notation.NewVar("i")
	rhs := &notation.Access{Tensor: b, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	if err := a.SetAssignment([]notation.IndexVar{vi}, rhs); err != nil {
		t.Fatal(err)
	}

	if err := a.SyncValues(); err != nil {
		t.Fatal(err)
	}
	if !a.compiled {
		t.Error("compiled = false after SyncValues ran Evaluate")
	}
	if a.needsCompute {
		t.Error("needsCompute still true after SyncValues ran Evaluate")
	}

	v, err := a.GetValue([]int{0})
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 4.0 {
		t.Errorf("a[0] = %v, want 4.0", v)
	}
}

// TestSyncValuesIsNoOpWhenNeitherFlagSet checks the third branch of the
// lifecycle's state table: a tensor with neither needsPack nor
// needsCompute set is left untouched.
func TestSyncValuesIsNoOpWhenNeitherFlagSet(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	if err := c.Insert([]int32{0}, 1.0); err != nil {
		t.Fatal(err)
	}
	if err := c.Pack(); err != nil {
		t.Fatal(err)
	}
	before := c.storage
	if err := c.SyncValues(); err != nil {
		t.Fatal(err)
	}
	if c.storage != before {
		t.Error("SyncValues touched storage when neither flag was set")
	}
}

// TestGetValueRejectsArityMismatch checks GetValue's precondition check
// ahead of the sync/scan it would otherwise perform.
func TestGetValueRejectsArityMismatch(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	_, err := c.GetValue([]int{0, 0})
	if !errors.Is(err, ErrArityMismatch) {
		t.Errorf("GetValue with wrong arity: err = %v, want wrapping ErrArityMismatch", err)
	}
}

// TestGetValueRejectsOutOfBounds checks GetValue's bounds check against
// the tensor's current dimension sizes.
func TestGetValueRejectsOutOfBounds(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	_, err := c.GetValue([]int{5})
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("GetValue out of bounds: err = %v, want wrapping ErrOutOfBounds", err)
	}
}

// TestZeroClearsLifecycleFlags checks that Zero resets both mutation
// flags even when they were set, leaving a fresh empty storage behind.
func TestZeroClearsLifecycleFlags(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	if err := c.Insert([]int32{0}, 1.0); err != nil {
		t.Fatal(err)
	}
	c.Zero()
	if c.needsPack {
		t.Error("needsPack still true after Zero")
	}
	if c.needsCompute {
		t.Error("needsCompute still true after Zero")
	}
}

// TestSetAllocSizeRejectsNonPowerOfTwo checks the alloc-size precondition
// independent of the constructor's own copy of the same check.
func TestSetAllocSizeRejectsNonPowerOfTwo(t *testing.T) {
	kb := refkernel.New()
	c := newDenseVector(t, 3, kb)
	if err := c.SetAllocSize(3); !errors.Is(err, ErrInvalidAllocSize) {
		t.Errorf("SetAllocSize(3): err = %v, want wrapping ErrInvalidAllocSize", err)
	}
	if err := c.SetAllocSize(4); err != nil {
		t.Errorf("SetAllocSize(4): unexpected error %v", err)
	}
}
