package notation

// Visitor is the strict, method-per-variant protocol for reading an
// IndexExpr tree: every concrete node type in this package has exactly
// one corresponding method, so adding a new Expr variant is a compile
// error at every existing Visitor implementation until it is updated —
// the same guarantee go/ast.Visitor gives callers of ast.Walk.
type Visitor interface {
	VisitAccess(*Access)
	VisitLiteral(*Literal)
	VisitNeg(*Neg)
	VisitSqrt(*Sqrt)
	VisitAdd(*Add)
	VisitSub(*Sub)
	VisitMul(*Mul)
	VisitDiv(*Div)
	VisitReduction(*Reduction)
}

// Walk dispatches e to the matching Visitor method, then recurses into
// e's children itself (Visitor implementations only ever see one node at
// a time; Walk owns the recursion, mirroring ast.Walk rather than
// ast.Inspect).
func Walk(v Visitor, e Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *Access:
		v.VisitAccess(n)
	case *Literal:
		v.VisitLiteral(n)
	case *Neg:
		v.VisitNeg(n)
		Walk(v, n.X)
	case *Sqrt:
		v.VisitSqrt(n)
		Walk(v, n.X)
	case *Add:
		v.VisitAdd(n)
		Walk(v, n.L)
		Walk(v, n.R)
	case *Sub:
		v.VisitSub(n)
		Walk(v, n.L)
		Walk(v, n.R)
	case *Mul:
		v.VisitMul(n)
		Walk(v, n.L)
		Walk(v, n.R)
	case *Div:
		v.VisitDiv(n)
		Walk(v, n.L)
		Walk(v, n.R)
	case *Reduction:
		v.VisitReduction(n)
		Walk(v, n.X)
	default:
		panic("notation: Walk on unhandled Expr variant")
	}
}
