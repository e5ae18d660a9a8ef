// Package transpose implements the mode-ordering transpose rewriter: it
// guarantees that every operand access in an assignment's rhs is
// consistent with one global iteration order over the assignment's
// index variables, replacing operands whose storage mode-ordering
// disagrees with a transposed copy.
package transpose

import (
	"github.com/oicirtap/taco/internal/notation"
)

// Transposer produces a copy of ref whose storage mode-ordering matches
// requiredOrdering (a permutation of ref's logical modes). It is
// implemented by internal/core, which owns the pack-based machinery: a
// transpose repacks rather than reinterpreting a view, since compressed
// levels have no fixed stride to reindex — this package only decides
// *when* a transpose is needed, not how to perform one.
type Transposer interface {
	Transpose(ref notation.TensorRef, requiredOrdering []int) (notation.TensorRef, error)
}

// Rewrite applies the transpose rewriter to a, returning a new
// Assignment whose rhs accesses are all consistent with one global
// order. If no operand needs transposing, the returned Assignment's Rhs
// is the identical value passed in (identity-preserving, per the
// Rewriter contract the rest of this module follows).
func Rewrite(t Transposer, a *notation.Assignment) (*notation.Assignment, error) {
	order := seedOrder(a.Lhs)
	order = extend(order, a.Rhs)

	r := &rewriter{t: t, order: order}
	rhs, err := notation.Rewrite(r, a.Rhs)
	if err != nil {
		return nil, err
	}
	if rhs == a.Rhs {
		return a, nil
	}
	return &notation.Assignment{Lhs: a.Lhs, Rhs: rhs, Op: a.Op}, nil
}

// seedOrder starts the global order from lhs's free variables, permuted
// by the lhs tensor's own storage mode-ordering (step 1 of §4.5).
func seedOrder(lhs *notation.Access) []notation.IndexVar {
	return permute(lhs.Indices, lhs.Tensor.ModeOrdering())
}

// permute reorders vars by ordering: result[storagePos] =
// vars[ordering[storagePos]]. A nil or length-mismatched ordering is
// treated as identity, matching format.Format's own default.
func permute(vars []notation.IndexVar, ordering []int) []notation.IndexVar {
	if len(ordering) != len(vars) {
		return append([]notation.IndexVar(nil), vars...)
	}
	out := make([]notation.IndexVar, len(vars))
	for storagePos, logicalPos := range ordering {
		out[storagePos] = vars[logicalPos]
	}
	return out
}

// extend walks rhs and, for every Access, inserts any variable from its
// permuted index list that is not yet in order — at the position right
// after the last variable from that access already present, preserving
// relative order (step 2 of §4.5). Ties (no variable from the access
// present yet) fall back to appending at the end; this is the
// deterministic "earlier-encountered wins" tie-break §4.5 calls for.
func extend(order []notation.IndexVar, e notation.Expr) []notation.IndexVar {
	c := &accessCollector{}
	notation.Walk(c, e)
	for _, acc := range c.accesses {
		permuted := permute(acc.Indices, acc.Tensor.ModeOrdering())
		insertAt := len(order)
		for i := len(permuted) - 1; i >= 0; i-- {
			if pos := indexOf(order, permuted[i]); pos >= 0 {
				insertAt = pos + 1
				break
			}
		}
		for _, v := range permuted {
			if indexOf(order, v) < 0 {
				order = append(order[:insertAt], append([]notation.IndexVar{v}, order[insertAt:]...)...)
				insertAt++
			}
		}
	}
	return order
}

func indexOf(order []notation.IndexVar, v notation.IndexVar) int {
	for i, o := range order {
		if o.Equal(v) {
			return i
		}
	}
	return -1
}

type accessCollector struct {
	accesses []*notation.Access
}

func (c *accessCollector) VisitAccess(n *notation.Access)   { c.accesses = append(c.accesses, n) }
func (c *accessCollector) VisitLiteral(*notation.Literal)   {}
func (c *accessCollector) VisitNeg(*notation.Neg)           {}
func (c *accessCollector) VisitSqrt(*notation.Sqrt)         {}
func (c *accessCollector) VisitAdd(*notation.Add)           {}
func (c *accessCollector) VisitSub(*notation.Sub)           {}
func (c *accessCollector) VisitMul(*notation.Mul)           {}
func (c *accessCollector) VisitDiv(*notation.Div)           {}
func (c *accessCollector) VisitReduction(*notation.Reduction) {}

// rewriter is the notation.Rewriter that actually performs step 3-4 of
// §4.5: for each Access, compute its required mode-ordering from the
// global order and, if it disagrees with the operand's actual
// mode-ordering, replace the operand with a transposed copy.
type rewriter struct {
	notation.IdentityRewriter
	t     Transposer
	order []notation.IndexVar
}

func (r *rewriter) RewriteAccess(n *notation.Access) (notation.Expr, error) {
	required := requiredOrdering(r.order, n.Indices)
	actual := n.Tensor.ModeOrdering()
	if orderingsEqual(required, actual) {
		return n, nil
	}
	transposed, err := r.t.Transpose(n.Tensor, required)
	if err != nil {
		return nil, err
	}
	return &notation.Access{Tensor: transposed, Indices: n.Indices, DType: n.DType}, nil
}

// requiredOrdering computes, for an access whose logical indices are
// idx, the storage-order permutation that would make idx's storage
// order consistent with the global order: requiredOrdering[ℓ] names
// which of idx's logical positions the global order visits ℓ'th.
func requiredOrdering(global, idx []notation.IndexVar) []int {
	// positions[v] = logical index of v within idx, for v in idx.
	positions := make(map[notation.IndexVar]int, len(idx))
	for i, v := range idx {
		positions[v] = i
	}
	out := make([]int, 0, len(idx))
	for _, v := range global {
		if p, ok := positions[v]; ok {
			out = append(out, p)
		}
	}
	return out
}

func orderingsEqual(a, b []int) bool {
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
