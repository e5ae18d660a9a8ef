package refkernel

import (
	"testing"

	"github.com/oicirtap/taco/backend"
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/coordbuf"
	"github.com/oicirtap/taco/internal/notation"
	"github.com/oicirtap/taco/internal/pack"
	"github.com/oicirtap/taco/internal/storage"
)

type stubTensor struct {
	name     string
	ordering []int
}

func (s *stubTensor) TensorName() string  { return s.name }
func (s *stubTensor) ModeOrdering() []int { return s.ordering }

func packDenseVector(t *testing.T, size int, vals map[int]float64) *storage.Storage {
	t.Helper()
	f, err := format.DenseFormat(size)
	if err != nil {
		t.Fatal(err)
	}
	buf := coordbuf.New(1, dtype.F64)
	for i := 0; i < size; i++ {
		if v, ok := vals[i]; ok {
			if err := buf.Insert([]int32{int32(i)}, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	s, err := pack.Pack(buf, f, pack.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func wireOperand(t *testing.T, s *storage.Storage, dims []int, dt dtype.Datatype) *backend.TacoTensorT {
	t.Helper()
	w, err := backend.ToWire(s, dims, dt)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

// TestEvaluateDenseVectorAdd runs Backend end-to-end (LowerAssemble ->
// AddFunction -> Invoke) on a(i) = b(i) + c(i) over dense vectors,
// exercising evalExpr's Add case and lookupValue's Dense branch.
func TestEvaluateDenseVectorAdd(t *testing.T) {
	bStore := packDenseVector(t, 3, map[int]float64{0: 1, 1: 2, 2: 3})
	cStore := packDenseVector(t, 3, map[int]float64{0: 10, 1: 20, 2: 30})

	vi := notation.NewVar("i")
	bAccess := &notation.Access{Tensor: &stubTensor{name: "B", ordering: []int{0}}, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	cAccess := &notation.Access{Tensor: &stubTensor{name: "C", ordering: []int{0}}, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	sum, err := notation.NewAdd(bAccess, cAccess)
	if err != nil {
		t.Fatal(err)
	}
	lhs := &notation.Access{Tensor: &stubTensor{name: "A", ordering: []int{0}}, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	asn := notation.NewAssignment(lhs, sum)

	kb := New()
	outFormat, err := format.DenseFormat(3)
	if err != nil {
		t.Fatal(err)
	}
	outStorage := storage.New(outFormat)

	h, err := kb.LowerAssemble(asn, "add_assemble", backend.Assemble, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if err := kb.AddFunction(h); err != nil {
		t.Fatal(err)
	}

	outWire := wireOperand(t, outStorage, []int{3}, dtype.F64)
	bWire := wireOperand(t, bStore, []int{3}, dtype.F64)
	cWire := wireOperand(t, cStore, []int{3}, dtype.F64)

	if err := kb.Invoke("add_assemble", []*backend.TacoTensorT{outWire, bWire, cWire}); err != nil {
		t.Fatal(err)
	}

	resultStorage, _, _, err := backend.FromWire(outWire, dtype.F64)
	if err != nil {
		t.Fatal(err)
	}
	got := storage.View[float64](resultStorage.GetValues())
	want := []float64{11, 22, 33}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("a[%d] = %v, want %v", i, got[i], w)
		}
	}
}

// TestEvaluateReductionDotProduct runs a scalar reduction, s = sum(i,
// b(i)*c(i)), exercising evalExpr's Reduction and Mul cases together with
// an order-0 (scalar) output.
func TestEvaluateReductionDotProduct(t *testing.T) {
	bStore := packDenseVector(t, 3, map[int]float64{0: 1, 1: 2, 2: 3})
	cStore := packDenseVector(t, 3, map[int]float64{0: 4, 1: 5, 2: 6})

	vi := notation.NewVar("i")
	bAccess := &notation.Access{Tensor: &stubTensor{name: "B", ordering: []int{0}}, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	cAccess := &notation.Access{Tensor: &stubTensor{name: "C", ordering: []int{0}}, Indices: []notation.IndexVar{vi}, DType: dtype.F64}
	prod, err := notation.NewMul(bAccess, cAccess)
	if err != nil {
		t.Fatal(err)
	}
	scalarFormat, err := format.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	lhs := &notation.Access{Tensor: &stubTensor{name: "S"}, Indices: nil, DType: dtype.F64}
	asn, err := notation.MakeReductionNotation(notation.NewAssignment(lhs, prod))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := asn.Rhs.(*notation.Reduction); !ok {
		t.Fatalf("setup: rhs = %T, want *notation.Reduction over the shared index i", asn.Rhs)
	}

	kb := New()
	outStorage := storage.New(scalarFormat)

	h, err := kb.LowerAssemble(asn, "dot_assemble", backend.Assemble, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if err := kb.AddFunction(h); err != nil {
		t.Fatal(err)
	}

	outWire := wireOperand(t, outStorage, nil, dtype.F64)
	bWire := wireOperand(t, bStore, []int{3}, dtype.F64)
	cWire := wireOperand(t, cStore, []int{3}, dtype.F64)

	if err := kb.Invoke("dot_assemble", []*backend.TacoTensorT{outWire, bWire, cWire}); err != nil {
		t.Fatal(err)
	}

	resultStorage, _, _, err := backend.FromWire(outWire, dtype.F64)
	if err != nil {
		t.Fatal(err)
	}
	got := storage.View[float64](resultStorage.GetValues())[0]
	want := 1*4 + 2*5 + 3*6.0
	if got != want {
		t.Errorf("dot product = %v, want %v", got, want)
	}
}

// TestInvokeUnknownFunctionErrors checks Invoke's own lookup failure mode
// independent of any LowerAssemble/AddFunction call.
func TestInvokeUnknownFunctionErrors(t *testing.T) {
	kb := New()
	if err := kb.Invoke("nonexistent", nil); err == nil {
		t.Error("Invoke on unregistered function name: want error, got nil")
	}
}

// TestAddFunctionRejectsForeignHandle checks that AddFunction refuses a
// FuncHandle it did not itself construct via LowerAssemble/LowerCompute.
type foreignHandle struct{}

func (foreignHandle) Name() string { return "foreign" }

func TestAddFunctionRejectsForeignHandle(t *testing.T) {
	kb := New()
	if err := kb.AddFunction(foreignHandle{}); err == nil {
		t.Error("AddFunction with a foreign FuncHandle: want error, got nil")
	}
}
