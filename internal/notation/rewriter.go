package notation

// Rewriter is the strict, method-per-variant protocol for transforming an
// IndexExpr tree: Rewrite walks e bottom-up, rebuilding each node only if
// one of its children actually changed, then hands the (possibly
// rebuilt) node to the matching method for a final chance to replace it —
// the same two-phase shape as golang.org/x/tools/go/ast/astutil.Rewrite's
// pre/post callbacks, specialized to this package's closed node set.
type Rewriter interface {
	RewriteAccess(*Access) (Expr, error)
	RewriteLiteral(*Literal) (Expr, error)
	RewriteNeg(*Neg) (Expr, error)
	RewriteSqrt(*Sqrt) (Expr, error)
	RewriteAdd(*Add) (Expr, error)
	RewriteSub(*Sub) (Expr, error)
	RewriteMul(*Mul) (Expr, error)
	RewriteDiv(*Div) (Expr, error)
	RewriteReduction(*Reduction) (Expr, error)
}

// Rewrite applies r to e and every descendant, returning the rewritten
// tree. It is identity-preserving: if no call to r changes anything,
// Rewrite returns e itself (the same pointer), not a rebuilt copy.
func Rewrite(r Rewriter, e Expr) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch n := e.(type) {
	case *Access:
		return r.RewriteAccess(n)
	case *Literal:
		return r.RewriteLiteral(n)
	case *Neg:
		x, err := Rewrite(r, n.X)
		if err != nil {
			return nil, err
		}
		node := n
		if x != n.X {
			node = &Neg{X: x}
		}
		return r.RewriteNeg(node)
	case *Sqrt:
		x, err := Rewrite(r, n.X)
		if err != nil {
			return nil, err
		}
		node := n
		if x != n.X {
			node = &Sqrt{X: x}
		}
		return r.RewriteSqrt(node)
	case *Add:
		node, err := rewriteBinary(r, n.binary)
		if err != nil {
			return nil, err
		}
		result := n
		if node != n.binary {
			result = &Add{node}
		}
		return r.RewriteAdd(result)
	case *Sub:
		node, err := rewriteBinary(r, n.binary)
		if err != nil {
			return nil, err
		}
		result := n
		if node != n.binary {
			result = &Sub{node}
		}
		return r.RewriteSub(result)
	case *Mul:
		node, err := rewriteBinary(r, n.binary)
		if err != nil {
			return nil, err
		}
		result := n
		if node != n.binary {
			result = &Mul{node}
		}
		return r.RewriteMul(result)
	case *Div:
		node, err := rewriteBinary(r, n.binary)
		if err != nil {
			return nil, err
		}
		result := n
		if node != n.binary {
			result = &Div{node}
		}
		return r.RewriteDiv(result)
	case *Reduction:
		x, err := Rewrite(r, n.X)
		if err != nil {
			return nil, err
		}
		node := n
		if x != n.X {
			node = &Reduction{Op: n.Op, Var: n.Var, X: x}
		}
		return r.RewriteReduction(node)
	default:
		panic("notation: Rewrite on unhandled Expr variant")
	}
}

func rewriteBinary(r Rewriter, b *binary) (*binary, error) {
	l, err := Rewrite(r, b.L)
	if err != nil {
		return nil, err
	}
	rhs, err := Rewrite(r, b.R)
	if err != nil {
		return nil, err
	}
	if l == b.L && rhs == b.R {
		return b, nil
	}
	return newBinary(b.Op, l, rhs)
}

// IdentityRewriter implements Rewriter by returning every node unchanged.
// Embed it to write a Rewriter that only overrides the handful of
// variants it actually cares about, rather than writing nine
// pass-through methods by hand.
type IdentityRewriter struct{}

func (IdentityRewriter) RewriteAccess(n *Access) (Expr, error)       { return n, nil }
func (IdentityRewriter) RewriteLiteral(n *Literal) (Expr, error)     { return n, nil }
func (IdentityRewriter) RewriteNeg(n *Neg) (Expr, error)             { return n, nil }
func (IdentityRewriter) RewriteSqrt(n *Sqrt) (Expr, error)           { return n, nil }
func (IdentityRewriter) RewriteAdd(n *Add) (Expr, error)             { return n, nil }
func (IdentityRewriter) RewriteSub(n *Sub) (Expr, error)             { return n, nil }
func (IdentityRewriter) RewriteMul(n *Mul) (Expr, error)             { return n, nil }
func (IdentityRewriter) RewriteDiv(n *Div) (Expr, error)             { return n, nil }
func (IdentityRewriter) RewriteReduction(n *Reduction) (Expr, error) { return n, nil }
