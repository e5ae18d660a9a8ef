package backend

import "github.com/oicirtap/taco/internal/notation"

// Operands returns the Access nodes a KernelBackend's Invoke call must
// be handed tensors for, in a fixed order: the assignment's lhs first,
// then every distinct rhs operand (by tensor identity) in first-occurrence
// order. Both core and a KernelBackend rely on this same ordering to
// zip a []*TacoTensorT slice back to the Access node that describes its
// component type.
func Operands(stmt *notation.Assignment) []*notation.Access {
	out := []*notation.Access{stmt.Lhs}
	seen := map[notation.TensorRef]bool{stmt.Lhs.Tensor: true}

	notation.Walk(&operandCollector{seen: seen, out: &out}, stmt.Rhs)
	return out
}

type operandCollector struct {
	seen map[notation.TensorRef]bool
	out  *[]*notation.Access
}

func (c *operandCollector) VisitAccess(n *notation.Access) {
	if c.seen[n.Tensor] {
		return
	}
	c.seen[n.Tensor] = true
	*c.out = append(*c.out, n)
}
func (c *operandCollector) VisitLiteral(*notation.Literal)     {}
func (c *operandCollector) VisitNeg(*notation.Neg)             {}
func (c *operandCollector) VisitSqrt(*notation.Sqrt)           {}
func (c *operandCollector) VisitAdd(*notation.Add)             {}
func (c *operandCollector) VisitSub(*notation.Sub)             {}
func (c *operandCollector) VisitMul(*notation.Mul)             {}
func (c *operandCollector) VisitDiv(*notation.Div)             {}
func (c *operandCollector) VisitReduction(*notation.Reduction) {}
