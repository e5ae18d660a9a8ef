package transpose

import (
	"testing"

	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/internal/notation"
)

type stubTensor struct {
	name     string
	ordering []int
}

func (s *stubTensor) TensorName() string  { return s.name }
func (s *stubTensor) ModeOrdering() []int { return s.ordering }

type stubTransposer struct {
	calls []struct {
		ref      notation.TensorRef
		ordering []int
	}
	result notation.TensorRef
}

func (s *stubTransposer) Transpose(ref notation.TensorRef, requiredOrdering []int) (notation.TensorRef, error) {
	s.calls = append(s.calls, struct {
		ref      notation.TensorRef
		ordering []int
	}{ref, requiredOrdering})
	if s.result != nil {
		return s.result, nil
	}
	return ref, nil
}

func access(tr notation.TensorRef, vars ...notation.IndexVar) *notation.Access {
	return &notation.Access{Tensor: tr, Indices: vars, DType: dtype.F64}
}

// TestExtendAppendsUnseenVarsInAccessOrder checks that variables from an
// access not yet in the running order are inserted right after the last
// variable from that same access already present.
func TestExtendAppendsUnseenVarsInAccessOrder(t *testing.T) {
	vi, vj, vk := notation.NewVar("i"), notation.NewVar("j"), notation.NewVar("k")
	b := &stubTensor{name: "B", ordering: []int{0, 1, 2}}
	acc := access(b, vi, vj, vk)

	order := extend([]notation.IndexVar{vi}, acc)

	want := []notation.IndexVar{vi, vj, vk}
	if !varsEqual(order, want) {
		t.Errorf("extend order = %v, want %v", order, want)
	}
}

// TestExtendTieBreakFallsBackToAppend checks the "earlier-encountered
// wins" tie-break: when none of an access's variables are present yet in
// the running order, its variables are appended at the end rather than
// inserted at some arbitrary earlier position.
func TestExtendTieBreakFallsBackToAppend(t *testing.T) {
	vi, vj, vk, vl := notation.NewVar("i"), notation.NewVar("j"), notation.NewVar("k"), notation.NewVar("l")
	c := &stubTensor{name: "C", ordering: []int{0, 1}}
	acc := access(c, vk, vl)

	order := extend([]notation.IndexVar{vi, vj}, acc)

	want := []notation.IndexVar{vi, vj, vk, vl}
	if !varsEqual(order, want) {
		t.Errorf("extend order = %v, want %v", order, want)
	}
}

// TestExtendInsertsAfterLastKnownVar checks that when an access shares
// one variable with the running order, its remaining unseen variables
// are inserted immediately after that shared variable's position, not
// at the very end.
func TestExtendInsertsAfterLastKnownVar(t *testing.T) {
	vi, vj, vk := notation.NewVar("i"), notation.NewVar("j"), notation.NewVar("k")
	b := &stubTensor{name: "B", ordering: []int{0, 1}}
	// b's permuted indices are (j, k): j is already known, k is not, so k
	// lands right after j, ahead of i, which follows j in the running order.
	acc := access(b, vj, vk)

	order := extend([]notation.IndexVar{vj, vi}, acc)

	want := []notation.IndexVar{vj, vk, vi}
	if !varsEqual(order, want) {
		t.Errorf("extend order = %v, want %v", order, want)
	}
}

// TestExtendHonorsAccessPermutation checks that extend permutes an
// access's indices by the access tensor's own mode-ordering before
// comparing against the running order, not the logical index order the
// access was written with.
func TestExtendHonorsAccessPermutation(t *testing.T) {
	vi, vj := notation.NewVar("i"), notation.NewVar("j")
	// b's storage order swaps its two logical modes: storage position 0
	// holds logical mode 1 (j), storage position 1 holds logical mode 0
	// (i) — so b.Access(vi, vj)'s permuted order is (j, i).
	b := &stubTensor{name: "B", ordering: []int{1, 0}}
	acc := access(b, vi, vj)

	order := extend(nil, acc)

	want := []notation.IndexVar{vj, vi}
	if !varsEqual(order, want) {
		t.Errorf("extend order = %v, want %v", order, want)
	}
}

func varsEqual(a, b []notation.IndexVar) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// TestRewriteTransposesOnlyDisagreeingOperands checks that Rewrite calls
// Transpose for an operand whose mode-ordering disagrees with the global
// order but leaves an already-consistent operand untouched.
func TestRewriteTransposesOnlyDisagreeingOperands(t *testing.T) {
	vi, vj := notation.NewVar("i"), notation.NewVar("j")
	lhsTensor := &stubTensor{name: "A", ordering: []int{0, 1}}
	agree := &stubTensor{name: "B", ordering: []int{0, 1}}
	disagree := &stubTensor{name: "C", ordering: []int{1, 0}}

	sum, err := notation.NewAdd(access(agree, vi, vj), access(disagree, vi, vj))
	if err != nil {
		t.Fatal(err)
	}
	asn := &notation.Assignment{
		Lhs: &notation.Access{Tensor: lhsTensor, Indices: []notation.IndexVar{vi, vj}, DType: dtype.F64},
		Rhs: sum,
	}

	tr := &stubTransposer{}
	out, err := Rewrite(tr, asn)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.calls) != 1 {
		t.Fatalf("Transpose called %d times, want 1", len(tr.calls))
	}
	if tr.calls[0].ref != notation.TensorRef(disagree) {
		t.Errorf("Transpose called on %v, want the disagreeing operand C", tr.calls[0].ref)
	}
	if out == asn {
		t.Error("Rewrite returned the identical Assignment despite rewriting an operand")
	}
}

// TestRewriteIsIdentityWhenAllOperandsAgree checks that Rewrite leaves
// the Assignment untouched (same pointer) when every operand's
// mode-ordering already matches the global order.
func TestRewriteIsIdentityWhenAllOperandsAgree(t *testing.T) {
	vi, vj := notation.NewVar("i"), notation.NewVar("j")
	lhsTensor := &stubTensor{name: "A", ordering: []int{0, 1}}
	agree := &stubTensor{name: "B", ordering: []int{0, 1}}

	asn := &notation.Assignment{
		Lhs: &notation.Access{Tensor: lhsTensor, Indices: []notation.IndexVar{vi, vj}, DType: dtype.F64},
		Rhs: access(agree, vi, vj),
	}

	tr := &stubTransposer{}
	out, err := Rewrite(tr, asn)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.calls) != 0 {
		t.Errorf("Transpose called %d times, want 0", len(tr.calls))
	}
	if out != asn {
		t.Error("Rewrite rebuilt the Assignment when no operand needed transposing")
	}
}
