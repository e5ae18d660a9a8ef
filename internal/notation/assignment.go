package notation

// Assignment binds an access (the left-hand side) to an index expression
// (the right-hand side), with an optional explicit combining operator.
// Free variables are the lhs's indices; reduction variables are rhs
// indices that do not appear in the lhs.
type Assignment struct {
	Lhs *Access
	Rhs Expr
	Op  BinaryOp
}

// NewAssignment builds an Assignment, defaulting Op to OpAdd for
// implicit reductions when no operator is given.
func NewAssignment(lhs *Access, rhs Expr, op ...BinaryOp) *Assignment {
	a := &Assignment{Lhs: lhs, Rhs: rhs, Op: OpAdd}
	if len(op) > 0 {
		a.Op = op[0]
	}
	return a
}

// FreeVars returns the assignment's free variables: the lhs access's
// indices, in the order they appear there.
func (a *Assignment) FreeVars() []IndexVar {
	return append([]IndexVar(nil), a.Lhs.Indices...)
}

// ReductionVars returns the rhs's index variables that are not among the
// lhs's free variables, in first-occurrence order within the rhs.
func (a *Assignment) ReductionVars() []IndexVar {
	free := a.FreeVars()
	var out []IndexVar
	seen := map[IndexVar]bool{}
	for _, v := range freeVars(a.Rhs) {
		if containsVar(free, v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func containsVar(vs []IndexVar, v IndexVar) bool {
	for _, x := range vs {
		if x.Equal(v) {
			return true
		}
	}
	return false
}

// freeVars collects every distinct IndexVar referenced by an Access node
// under e, in first-occurrence preorder.
func freeVars(e Expr) []IndexVar {
	c := &varCollector{}
	Walk(c, e)
	return c.order
}

type varCollector struct {
	order []IndexVar
	seen  map[IndexVar]bool
}

func (c *varCollector) add(v IndexVar) {
	if c.seen == nil {
		c.seen = map[IndexVar]bool{}
	}
	if c.seen[v] {
		return
	}
	c.seen[v] = true
	c.order = append(c.order, v)
}

func (c *varCollector) VisitAccess(n *Access) {
	for _, v := range n.Indices {
		c.add(v)
	}
}
func (c *varCollector) VisitLiteral(*Literal)     {}
func (c *varCollector) VisitNeg(*Neg)             {}
func (c *varCollector) VisitSqrt(*Sqrt)           {}
func (c *varCollector) VisitAdd(*Add)             {}
func (c *varCollector) VisitSub(*Sub)             {}
func (c *varCollector) VisitMul(*Mul)             {}
func (c *varCollector) VisitDiv(*Div)             {}
func (c *varCollector) VisitReduction(*Reduction) {}

// MakeReductionNotation canonicalizes a's rhs: every reduction variable
// is materialized as an explicit Reduction node
// wrapping the minimal subexpression that uses it, rather than left as
// a bare free index the backend would have to infer. Reduction is
// pushed down through Add/Sub/Neg (sum distributes over them) but stops
// at Mul/Div/Sqrt, where TACO-style contraction semantics require the
// whole product (or the whole sqrt) to be reduced as a unit rather than
// its factors independently.
func MakeReductionNotation(a *Assignment) (*Assignment, error) {
	rhs := a.Rhs
	for _, v := range a.ReductionVars() {
		rhs = insertReduction(rhs, v, a.Op)
	}
	if rhs == a.Rhs {
		return a, nil
	}
	return &Assignment{Lhs: a.Lhs, Rhs: rhs, Op: a.Op}, nil
}

func insertReduction(e Expr, v IndexVar, op BinaryOp) Expr {
	if !usesVar(e, v) {
		return e
	}
	switch n := e.(type) {
	case *Access, *Literal, *Mul, *Div, *Sqrt:
		return &Reduction{Op: op, Var: v, X: n}
	case *Neg:
		return &Neg{X: insertReduction(n.X, v, op)}
	case *Add:
		return &Add{&binary{Op: OpAdd, L: insertReduction(n.L, v, op), R: insertReduction(n.R, v, op), dtype: n.dtype}}
	case *Sub:
		return &Sub{&binary{Op: OpSub, L: insertReduction(n.L, v, op), R: insertReduction(n.R, v, op), dtype: n.dtype}}
	case *Reduction:
		return &Reduction{Op: n.Op, Var: n.Var, X: insertReduction(n.X, v, op)}
	default:
		panic("notation: insertReduction on unhandled Expr variant")
	}
}

// usesVar reports whether v appears, free or already-reduced, anywhere
// under e.
func usesVar(e Expr, v IndexVar) bool {
	return containsVar(freeVars(e), v)
}
