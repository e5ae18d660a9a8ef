// Package notation implements the index-expression algebra tree: IndexVar,
// the IndexExpr sum type, the Visitor/Rewriter protocols that walk it, and
// Assignment, the binding of an access to an expression. The tree's shape
// and the Visitor/Rewriter split are modeled after the go/ast package, the
// same model the gx-org-gx intermediate representation cites for its own
// tree.
package notation

import (
	"fmt"
	"math"

	"github.com/oicirtap/taco/dtype"
)

// IndexVar is a value-semantic symbol used in index expressions. Equality
// is structural on identity: two IndexVars are the same variable iff they
// share both Name and Generation. Generation distinguishes variables that
// happen to share a name across separate notation.NewVar calls.
type IndexVar struct {
	Name       string
	Generation int
}

var varGeneration int

// NewVar creates a fresh IndexVar. Two calls with the same name produce
// distinct variables (different Generation), since callers that want the
// "same" variable should keep and reuse the IndexVar value rather than
// calling NewVar again.
func NewVar(name string) IndexVar {
	varGeneration++
	return IndexVar{Name: name, Generation: varGeneration}
}

// Equal reports whether v and other name the same variable.
func (v IndexVar) Equal(other IndexVar) bool {
	return v.Name == other.Name && v.Generation == other.Generation
}

func (v IndexVar) String() string {
	if v.Generation == 0 {
		return v.Name
	}
	return fmt.Sprintf("%s#%d", v.Name, v.Generation)
}

// TensorRef names the tensor an Access node reads, without importing
// internal/core (which would create an import cycle: core builds
// Assignments over notation, notation cannot depend back on core). It
// carries just enough identity and format information for the transpose
// rewriter and a backend to act on.
type TensorRef interface {
	// TensorName is used only for diagnostics and the tree's String form.
	TensorName() string
	// ModeOrdering returns the storage order of this tensor's logical
	// modes, consulted by the transpose rewriter.
	ModeOrdering() []int
}

// Expr is the sum type of index-expression tree nodes. The unexported
// marker method closes the set to this package's variants, the same
// "node()" idiom the gx-org-gx IR package uses to prevent external
// implementations of its own Node interface.
type Expr interface {
	expr()
	// Datatype returns the node's result type, computed bottom-up: a
	// binary node's type is the widening join of its operands.
	Datatype() dtype.Datatype
}

// Access references one tensor's values at a tuple of index variables.
// The tuple's length must equal the referenced tensor's order.
type Access struct {
	Tensor  TensorRef
	Indices []IndexVar
	DType   dtype.Datatype
}

func (a *Access) expr()                 {}
func (a *Access) Datatype() dtype.Datatype { return a.DType }

// Literal is a compile-time-known scalar operand.
type Literal struct {
	DType dtype.Datatype
	Bits  uint64 // the literal's bit pattern, reinterpreted per DType.
}

func (l *Literal) expr()                 {}
func (l *Literal) Datatype() dtype.Datatype { return l.DType }

// Neg negates its operand; its type equals the operand's.
type Neg struct{ X Expr }

func (n *Neg) expr()                 {}
func (n *Neg) Datatype() dtype.Datatype { return n.X.Datatype() }

// Sqrt takes the square root of its operand; its type equals the
// operand's.
type Sqrt struct{ X Expr }

func (s *Sqrt) expr()                 {}
func (s *Sqrt) Datatype() dtype.Datatype { return s.X.Datatype() }

// BinaryOp names a binary operator, shared between expression nodes and
// Assignment (an Assignment's op, when present, drives implicit
// reduction).
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

type binary struct {
	Op    BinaryOp
	L, R  Expr
	dtype dtype.Datatype
}

func (b *binary) expr() {}

func (b *binary) Datatype() dtype.Datatype { return b.dtype }

func newBinary(op BinaryOp, l, r Expr) (*binary, error) {
	dt, err := dtype.Join(l.Datatype(), r.Datatype())
	if err != nil {
		return nil, fmt.Errorf("notation: %v %s %v: %w", l, op, r, err)
	}
	return &binary{Op: op, L: l, R: r, dtype: dt}, nil
}

// Add, Sub, Mul, Div build the four binary operator nodes, each wrapping
// newBinary in a distinct concrete type so the Visitor/Rewriter
// interfaces can dispatch on it without an Op-tag switch.
type (
	Add struct{ *binary }
	Sub struct{ *binary }
	Mul struct{ *binary }
	Div struct{ *binary }
)

// NewAdd builds an Add node, returning an error if l and r's datatypes do
// not widening-join.
func NewAdd(l, r Expr) (*Add, error) { b, err := newBinary(OpAdd, l, r); return &Add{b}, err }

// NewSub builds a Sub node.
func NewSub(l, r Expr) (*Sub, error) { b, err := newBinary(OpSub, l, r); return &Sub{b}, err }

// NewMul builds a Mul node.
func NewMul(l, r Expr) (*Mul, error) { b, err := newBinary(OpMul, l, r); return &Mul{b}, err }

// NewDiv builds a Div node.
func NewDiv(l, r Expr) (*Div, error) { b, err := newBinary(OpDiv, l, r); return &Div{b}, err }

// Reduction reduces e over Var using Op, e.g. sum_k(B(i,k) * C(k,j)).
// Implicit reductions are materialized as Reduction nodes by
// MakeReductionNotation rather than left as bare free variables.
type Reduction struct {
	Op  BinaryOp
	Var IndexVar
	X   Expr
}

func (r *Reduction) expr()                 {}
func (r *Reduction) Datatype() dtype.Datatype { return r.X.Datatype() }

// NewLiteral builds a Literal of type dt from a float64 value, encoding
// it into Literal.Bits the way a refkernel-style backend later decodes
// it (the inverse of backend/refkernel's bitsToFloat64).
func NewLiteral(dt dtype.Datatype, v float64) (*Literal, error) {
	var bits uint64
	switch dt {
	case dtype.F32:
		bits = uint64(math.Float32bits(float32(v)))
	case dtype.F64:
		bits = math.Float64bits(v)
	case dtype.I32:
		bits = uint64(uint32(int32(v)))
	case dtype.I64:
		bits = uint64(int64(v))
	case dtype.U32:
		bits = uint64(uint32(v))
	case dtype.U64:
		bits = uint64(v)
	default:
		return nil, fmt.Errorf("notation: NewLiteral: unsupported literal type %s", dt)
	}
	return &Literal{DType: dt, Bits: bits}, nil
}
