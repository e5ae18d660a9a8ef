// Package refkernel implements an interpreted KernelBackend: it does not
// generate or compile native code. LowerAssemble and LowerCompute return
// closures that walk the already-canonicalized notation.Assignment tree
// directly and evaluate it by dense enumeration of the output's free
// variables plus recursive reduction over Reduction nodes, filtering
// zero results the same way a real sparse kernel's iteration would skip
// absent coordinates. It exists to drive compile/assemble/compute in
// tests; production use wants a real code-generating backend instead.
//
// A naive interpreter suitable for correctness tests, not performance:
// it re-evaluates every free-variable combination from scratch rather
// than compiling a specialized loop nest.
package refkernel

import (
	"fmt"
	"math"

	"github.com/oicirtap/taco/backend"
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/coordbuf"
	"github.com/oicirtap/taco/internal/notation"
	"github.com/oicirtap/taco/internal/pack"
	"github.com/oicirtap/taco/internal/storage"
)

// Backend is the reference KernelBackend.
type Backend struct {
	funcs map[string]*handle
}

// New creates an empty reference backend.
func New() *Backend { return &Backend{funcs: map[string]*handle{}} }

type handle struct {
	name string
	run  func(tensors []*backend.TacoTensorT) error
}

func (h *handle) Name() string { return h.name }

// LowerAssemble returns a handle that fully evaluates stmt — both the
// output's sparsity pattern and its values — since this interpreted
// backend gains nothing from deferring value computation to a separate
// compute pass the way a codegen backend does.
func (b *Backend) LowerAssemble(stmt *notation.Assignment, name string, props backend.Props, allocSize int) (backend.FuncHandle, error) {
	return &handle{name: name, run: func(tensors []*backend.TacoTensorT) error {
		return evaluate(stmt, tensors)
	}}, nil
}

// LowerCompute returns a handle that re-runs the same evaluation. It is
// idempotent with the assemble handle's effect: calling it after
// LowerAssemble's handle recomputes identical values.
func (b *Backend) LowerCompute(stmt *notation.Assignment, name string, props backend.Props, allocSize int) (backend.FuncHandle, error) {
	return &handle{name: name, run: func(tensors []*backend.TacoTensorT) error {
		return evaluate(stmt, tensors)
	}}, nil
}

// AddFunction registers h for later Invoke by name.
func (b *Backend) AddFunction(h backend.FuncHandle) error {
	hh, ok := h.(*handle)
	if !ok {
		return fmt.Errorf("refkernel: foreign FuncHandle %T", h)
	}
	b.funcs[hh.name] = hh
	return nil
}

// CompileModule is a no-op: there is no module to compile, every
// function already closed over everything it needs at lower time.
func (b *Backend) CompileModule() error { return nil }

// Invoke runs the named function against tensors, in the order
// backend.Operands describes (output first, then rhs operands).
func (b *Backend) Invoke(name string, tensors []*backend.TacoTensorT) error {
	h, ok := b.funcs[name]
	if !ok {
		return fmt.Errorf("refkernel: no function named %q", name)
	}
	return h.run(tensors)
}

type operandData struct {
	access *notation.Access
	store  *storage.Storage
	format *format.Format
	dims   []int
}

func evaluate(stmt *notation.Assignment, tensors []*backend.TacoTensorT) error {
	accesses := backend.Operands(stmt)
	if len(tensors) != len(accesses) {
		return fmt.Errorf("refkernel: %d tensors for %d operands", len(tensors), len(accesses))
	}

	_, outFormat, outDims, err := backend.FromWire(tensors[0], stmt.Lhs.DType)
	if err != nil {
		return err
	}

	byAccess := make(map[*notation.Access]*operandData, len(accesses)-1)
	varSizes := make(map[notation.IndexVar]int)
	for i, v := range stmt.Lhs.Indices {
		varSizes[v] = outDims[i]
	}
	for i := 1; i < len(accesses); i++ {
		s, f, dims, err := backend.FromWire(tensors[i], accesses[i].DType)
		if err != nil {
			return err
		}
		od := &operandData{access: accesses[i], store: s, format: f, dims: dims}
		byAccess[accesses[i]] = od
		for j, v := range accesses[i].Indices {
			varSizes[v] = dims[j]
		}
	}

	buf := coordbuf.New(len(stmt.Lhs.Indices), stmt.Lhs.DType)
	env := map[notation.IndexVar]int{}
	var walkErr error
	forEachCoord(outDims, func(combo []int) {
		if walkErr != nil {
			return
		}
		for i, v := range stmt.Lhs.Indices {
			env[v] = combo[i]
		}
		val, err := evalExpr(stmt.Rhs, env, byAccess, varSizes)
		if err != nil {
			walkErr = err
			return
		}
		if val == 0 {
			return
		}
		coord := make([]int32, len(combo))
		for i, c := range combo {
			coord[i] = int32(c)
		}
		if err := buf.Insert(coord, toTyped(stmt.Lhs.DType, val)); err != nil {
			walkErr = err
		}
	})
	if walkErr != nil {
		return walkErr
	}

	resultStorage, err := pack.Pack(buf, outFormat, pack.Options{})
	if err != nil {
		return err
	}
	wire, err := backend.ToWire(resultStorage, outDims, stmt.Lhs.DType)
	if err != nil {
		return err
	}
	*tensors[0] = *wire
	return nil
}

// forEachCoord calls fn once per element of the cartesian product of
// [0,dims[0]) x ... x [0,dims[n-1]). A zero-length dims calls fn once
// with an empty combo (the order-0, scalar case).
func forEachCoord(dims []int, fn func(combo []int)) {
	combo := make([]int, len(dims))
	var rec func(level int)
	rec = func(level int) {
		if level == len(dims) {
			fn(combo)
			return
		}
		for v := 0; v < dims[level]; v++ {
			combo[level] = v
			rec(level + 1)
		}
	}
	rec(0)
}

func evalExpr(e notation.Expr, env map[notation.IndexVar]int, ops map[*notation.Access]*operandData, varSizes map[notation.IndexVar]int) (float64, error) {
	switch n := e.(type) {
	case *notation.Access:
		coord := make([]int, len(n.Indices))
		for i, v := range n.Indices {
			c, ok := env[v]
			if !ok {
				return 0, fmt.Errorf("refkernel: unbound index variable %s", v)
			}
			coord[i] = c
		}
		od, ok := ops[n]
		if !ok {
			return 0, fmt.Errorf("refkernel: unknown operand tensor %q", n.Tensor.TensorName())
		}
		v, found := lookupValue(od.store, od.format, coord)
		if !found {
			return 0, nil
		}
		return v, nil
	case *notation.Literal:
		return bitsToFloat64(n.DType, n.Bits), nil
	case *notation.Neg:
		x, err := evalExpr(n.X, env, ops, varSizes)
		return -x, err
	case *notation.Sqrt:
		x, err := evalExpr(n.X, env, ops, varSizes)
		return math.Sqrt(x), err
	case *notation.Add:
		l, err := evalExpr(n.L, env, ops, varSizes)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(n.R, env, ops, varSizes)
		return l + r, err
	case *notation.Sub:
		l, err := evalExpr(n.L, env, ops, varSizes)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(n.R, env, ops, varSizes)
		return l - r, err
	case *notation.Mul:
		l, err := evalExpr(n.L, env, ops, varSizes)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(n.R, env, ops, varSizes)
		return l * r, err
	case *notation.Div:
		l, err := evalExpr(n.L, env, ops, varSizes)
		if err != nil {
			return 0, err
		}
		r, err := evalExpr(n.R, env, ops, varSizes)
		return l / r, err
	case *notation.Reduction:
		size, ok := varSizes[n.Var]
		if !ok {
			return 0, fmt.Errorf("refkernel: cannot determine range of reduction variable %s", n.Var)
		}
		acc := identityFor(n.Op)
		for v := 0; v < size; v++ {
			prev, hadPrev := env[n.Var]
			env[n.Var] = v
			x, err := evalExpr(n.X, env, ops, varSizes)
			if hadPrev {
				env[n.Var] = prev
			} else {
				delete(env, n.Var)
			}
			if err != nil {
				return 0, err
			}
			acc = combine(n.Op, acc, x)
		}
		return acc, nil
	default:
		return 0, fmt.Errorf("refkernel: unhandled expression node %T", e)
	}
}

func identityFor(op notation.BinaryOp) float64 {
	if op == notation.OpMul || op == notation.OpDiv {
		return 1
	}
	return 0
}

func combine(op notation.BinaryOp, acc, x float64) float64 {
	switch op {
	case notation.OpAdd:
		return acc + x
	case notation.OpSub:
		return acc - x
	case notation.OpMul:
		return acc * x
	case notation.OpDiv:
		return acc / x
	default:
		return acc + x
	}
}

// lookupValue walks s's index tree to find the value at logicalCoord
// (in f's logical mode order), returning (0, false) if the coordinate is
// absent — a Sparse-format miss, never an error.
func lookupValue(s *storage.Storage, f *format.Format, logicalCoord []int) (float64, bool) {
	order := f.GetOrder()
	if order == 0 {
		vals := s.GetValues()
		if vals == nil || vals.Len() == 0 {
			return 0, false
		}
		return asFloat64(vals, 0), true
	}

	ordering := f.GetModeOrdering()
	storageCoord := make([]int, order)
	for storagePos, logicalPos := range ordering {
		storageCoord[storagePos] = logicalCoord[logicalPos]
	}

	logicalKinds := f.GetModeFormats()
	modes := s.GetIndex().Modes()
	parentPos := 0
	for level := 0; level < order; level++ {
		kind := logicalKinds[ordering[level]]
		c := storageCoord[level]
		if kind.Kind == format.Dense {
			parentPos = parentPos*kind.DimSize + c
			continue
		}
		pos := storage.View[int32](modes[level].Pos())
		crd := storage.View[int32](modes[level].Crd())
		start, end := pos[parentPos], pos[parentPos+1]
		found := -1
		for k := start; k < end; k++ {
			if int(crd[k]) == c {
				found = int(k)
				break
			}
		}
		if found < 0 {
			return 0, false
		}
		parentPos = found
	}

	vals := s.GetValues()
	if parentPos >= vals.Len() {
		return 0, false
	}
	return asFloat64(vals, parentPos), true
}

func asFloat64(a *storage.Array, i int) float64 {
	switch a.Datatype() {
	case dtype.F32:
		return float64(storage.View[float32](a)[i])
	case dtype.F64:
		return storage.View[float64](a)[i]
	case dtype.I32:
		return float64(storage.View[int32](a)[i])
	case dtype.I64:
		return float64(storage.View[int64](a)[i])
	case dtype.U32:
		return float64(storage.View[uint32](a)[i])
	case dtype.U64:
		return float64(storage.View[uint64](a)[i])
	case dtype.Bool:
		if storage.View[bool](a)[i] {
			return 1
		}
		return 0
	default:
		panic("refkernel: unsupported value type " + a.Datatype().String())
	}
}

func bitsToFloat64(dt dtype.Datatype, bits uint64) float64 {
	switch dt {
	case dtype.F32:
		return float64(math.Float32frombits(uint32(bits)))
	case dtype.F64:
		return math.Float64frombits(bits)
	case dtype.I32:
		return float64(int32(bits))
	case dtype.I64:
		return float64(int64(bits))
	case dtype.U32, dtype.U64:
		return float64(bits)
	default:
		panic("refkernel: unsupported literal type " + dt.String())
	}
}

func toTyped(dt dtype.Datatype, v float64) any {
	switch dt {
	case dtype.F32:
		return float32(v)
	case dtype.F64:
		return v
	case dtype.I32:
		return int32(v)
	case dtype.I64:
		return int64(v)
	case dtype.U32:
		return uint32(v)
	case dtype.U64:
		return uint64(v)
	case dtype.Bool:
		return v != 0
	default:
		panic("refkernel: unsupported value type " + dt.String())
	}
}
