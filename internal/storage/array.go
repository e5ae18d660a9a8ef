// Package storage implements the Format-described physical layout of a
// tensor: a typed, ownership-tagged byte buffer (Array), the per-mode
// index arrays a Format's levels require (ModeIndex, Index), and the
// Storage that ties an Index and a values Array to a Format.
package storage

import (
	"fmt"
	"unsafe"

	"github.com/oicirtap/taco/dtype"
)

// Ownership tags whether an Array's backing memory is released when the
// Array is no longer needed.
type Ownership int

const (
	// Owned arrays release their backing memory on Release.
	Owned Ownership = iota
	// UserOwns arrays never release memory the core did not allocate;
	// Release is a no-op.
	UserOwns
)

// Array is a typed byte buffer with an element count and an ownership
// tag. It is the concrete representation behind every index array and
// every tensor's values.
type Array struct {
	dt        dtype.Datatype
	data      []byte
	length    int
	ownership Ownership
}

// NewArray allocates a zero-initialized, Owned array of length elements
// of type dt.
func NewArray(dt dtype.Datatype, length int) *Array {
	return &Array{dt: dt, data: make([]byte, length*dt.Size()), length: length, ownership: Owned}
}

// NewArrayFromBytes wraps an existing byte buffer as an array without
// copying. ownership determines whether Release frees data.
func NewArrayFromBytes(dt dtype.Datatype, data []byte, length int, ownership Ownership) *Array {
	return &Array{dt: dt, data: data, length: length, ownership: ownership}
}

// Datatype returns the array's element type.
func (a *Array) Datatype() dtype.Datatype { return a.dt }

// Len returns the number of elements in the array.
func (a *Array) Len() int { return a.length }

// Bytes returns the raw backing buffer.
func (a *Array) Bytes() []byte { return a.data }

// Release frees the backing buffer iff the array is Owned. UserOwns
// arrays are left untouched: the core must never free memory a caller
// registered as externally owned.
func (a *Array) Release() {
	if a.ownership == Owned {
		a.data = nil
		a.length = 0
	}
}

// View reinterprets the array's bytes as a []T, zero-copy. It panics if
// T's size does not match the array's declared element type: every read
// goes through this check rather than trusting the caller's type
// parameter, the same way a per-type accessor would validate its tag
// before casting.
func View[T any](a *Array) []T {
	var zero T
	if want := int(unsafe.Sizeof(zero)); want != a.dt.Size() {
		panic(fmt.Sprintf("storage: View[%T] requested on %s array (size %d, want %d)", zero, a.dt, a.dt.Size(), want))
	}
	if a.length == 0 {
		return nil
	}
	//nolint:gosec // zero-copy typed view; size checked above, bounds via a.length
	return unsafe.Slice((*T)(unsafe.Pointer(&a.data[0])), a.length)
}

// At reads element i as a Go value of the type a.Datatype() implies,
// dispatching the same way coordbuf's type-erased reader does — the
// type-erased-value counterpart to View, for callers (get_value, the
// iterator) that want one value rather than a whole typed slice.
func (a *Array) At(i int) any {
	switch a.dt {
	case dtype.Bool:
		return View[bool](a)[i]
	case dtype.I8:
		return View[int8](a)[i]
	case dtype.U8:
		return View[uint8](a)[i]
	case dtype.I16:
		return View[int16](a)[i]
	case dtype.U16:
		return View[uint16](a)[i]
	case dtype.I32:
		return View[int32](a)[i]
	case dtype.U32:
		return View[uint32](a)[i]
	case dtype.F32:
		return View[float32](a)[i]
	case dtype.I64:
		return View[int64](a)[i]
	case dtype.U64:
		return View[uint64](a)[i]
	case dtype.F64:
		return View[float64](a)[i]
	case dtype.C64:
		return View[complex64](a)[i]
	case dtype.C128:
		return View[complex128](a)[i]
	case dtype.I128:
		return View[dtype.Int128](a)[i]
	case dtype.U128:
		return View[dtype.Uint128](a)[i]
	default:
		panic("storage: At on unsupported array type " + a.dt.String())
	}
}

// Set writes v into element i, type-checked against a.Datatype(). It
// returns an error (not a panic) on mismatch: unlike View's size check,
// which guards a programming error in this module's own code, Set is
// reached from user-supplied values (the packer writes each inserted
// value through it) where a type mismatch is a data error.
func (a *Array) Set(i int, v any) error {
	switch a.dt {
	case dtype.Bool:
		x, ok := v.(bool)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[bool](a)[i] = x
	case dtype.I8:
		x, ok := v.(int8)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[int8](a)[i] = x
	case dtype.U8:
		x, ok := v.(uint8)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[uint8](a)[i] = x
	case dtype.I16:
		x, ok := v.(int16)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[int16](a)[i] = x
	case dtype.U16:
		x, ok := v.(uint16)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[uint16](a)[i] = x
	case dtype.I32:
		x, ok := v.(int32)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[int32](a)[i] = x
	case dtype.U32:
		x, ok := v.(uint32)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[uint32](a)[i] = x
	case dtype.F32:
		x, ok := v.(float32)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[float32](a)[i] = x
	case dtype.I64:
		x, ok := v.(int64)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[int64](a)[i] = x
	case dtype.U64:
		x, ok := v.(uint64)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[uint64](a)[i] = x
	case dtype.F64:
		x, ok := v.(float64)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[float64](a)[i] = x
	case dtype.C64:
		x, ok := v.(complex64)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[complex64](a)[i] = x
	case dtype.C128:
		x, ok := v.(complex128)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[complex128](a)[i] = x
	case dtype.I128:
		x, ok := v.(dtype.Int128)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[dtype.Int128](a)[i] = x
	case dtype.U128:
		x, ok := v.(dtype.Uint128)
		if !ok {
			return typeMismatch(a.dt, v)
		}
		View[dtype.Uint128](a)[i] = x
	default:
		return typeMismatch(a.dt, v)
	}
	return nil
}

func typeMismatch(dt dtype.Datatype, v any) error {
	return fmt.Errorf("storage: value %T does not match component type %s", v, dt)
}
