// Package dtype provides the runtime type tag every value in a tensor
// dispatches on. Unlike a generic type parameter, a Datatype travels with
// the data at runtime: a Format, a Storage, and every IndexExpr node carry
// one, and no numeric operation in this module widens across tags
// implicitly.
package dtype

import "fmt"

// Datatype tags the scalar type of a tensor's component values.
type Datatype int

// Supported scalar types. Undefined is the zero value and never appears
// on a constructed tensor.
const (
	Undefined Datatype = iota
	Bool
	I8
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F32
	F64
	C64
	C128
)

// Size returns the byte size of one component value of this type.
// Panics on Undefined: callers must resolve a type before asking its size.
func (d Datatype) Size() int {
	switch d {
	case Bool, I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64, C64:
		return 8
	case I128, U128, C128:
		return 16
	default:
		panic(fmt.Sprintf("dtype: Size called on %s", d))
	}
}

// String returns a human-readable name for the type.
func (d Datatype) String() string {
	switch d {
	case Undefined:
		return "undefined"
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case I128:
		return "i128"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case U128:
		return "u128"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case C64:
		return "complex64"
	case C128:
		return "complex128"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// IsSigned reports whether the type is a signed integer.
func (d Datatype) IsSigned() bool {
	switch d {
	case I8, I16, I32, I64, I128:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether the type is an unsigned integer.
func (d Datatype) IsUnsigned() bool {
	switch d {
	case U8, U16, U32, U64, U128:
		return true
	default:
		return false
	}
}

// IsInteger reports whether the type is a signed or unsigned integer.
func (d Datatype) IsInteger() bool {
	return d.IsSigned() || d.IsUnsigned()
}

// IsFloat reports whether the type is a real floating-point type.
func (d Datatype) IsFloat() bool {
	return d == F32 || d == F64
}

// IsComplex reports whether the type is a complex floating-point type.
func (d Datatype) IsComplex() bool {
	return d == C64 || d == C128
}

// IsNumeric reports whether arithmetic operators apply to the type.
func (d Datatype) IsNumeric() bool {
	return d.IsInteger() || d.IsFloat() || d.IsComplex()
}

// rank orders types for the widening join below. Higher ranks absorb
// lower ones; Bool is intentionally not numeric and has no rank.
var rank = map[Datatype]int{
	I8: 1, I16: 2, I32: 3, I64: 4, I128: 5,
	U8: 1, U16: 2, U32: 3, U64: 4, U128: 5,
	F32: 6, F64: 7,
	C64: 8, C128: 9,
}

// Int128 represents an i128 component value as a high/low pair, since Go
// has no native 128-bit integer type.
type Int128 struct{ Hi int64; Lo uint64 }

// Uint128 represents a u128 component value as a high/low pair.
type Uint128 struct{ Hi, Lo uint64 }

// Join computes the data type of a binary expression node from its two
// operand types: the result is always a widening join of its operands,
// never an implicit narrowing. Joining a type with
// itself returns that type. Joining an integer with a float or complex
// type widens to the float/complex type. Mixing signed and unsigned
// integers of equal rank widens to the next signed rank up, mirroring the
// conservative behavior a lowering backend's C-like target would apply.
func Join(a, b Datatype) (Datatype, error) {
	if a == b {
		return a, nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Undefined, fmt.Errorf("dtype: cannot join non-numeric types %s and %s", a, b)
	}
	if a.IsComplex() || b.IsComplex() {
		if a == C128 || b == C128 {
			return C128, nil
		}
		// The remaining operand is non-complex, paired with a C64
		// (complex64, a float32 pair). Widen to C128 if that operand
		// needs float64 or wider precision to avoid losing it.
		other := a
		if a.IsComplex() {
			other = b
		}
		switch other {
		case F64, I64, U64, I128, U128:
			return C128, nil
		}
		return C64, nil
	}
	if a.IsFloat() || b.IsFloat() {
		if a == F64 || b == F64 {
			return F64, nil
		}
		return F32, nil
	}
	// Both integer: widen to the larger rank; a signed/unsigned tie widens
	// to the next signed width up so the result can hold either operand.
	ra, rb := rank[a], rank[b]
	hi, hiType := ra, a
	if rb > ra {
		hi, hiType = rb, b
	}
	if a.IsSigned() != b.IsSigned() && ra == rb {
		switch hi {
		case 1:
			return I16, nil
		case 2:
			return I32, nil
		case 3:
			return I64, nil
		case 4:
			return I128, nil
		default:
			return I128, nil
		}
	}
	return hiType, nil
}
