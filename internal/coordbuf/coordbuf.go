// Package coordbuf implements the per-tensor scratch area insert calls
// land in before a pack: a type-erased, append-only byte vector of
// (coord_tuple, value) records. Pack reads the records without clearing
// them, so each pack is built from every record inserted since the last
// Clear (which TensorContent's Zero calls). It is owned exclusively
// by the TensorCore handle that created it — not shared across handles
// of the same content — so a handle can move between goroutines without
// a staging-buffer race.
package coordbuf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/oicirtap/taco/dtype"
)

// Buffer is the append-only coordinate/value staging area for one
// tensor. Each record is order*4 (one little-endian int32 per coordinate
// component) + the component type's byte size.
type Buffer struct {
	order      int
	dt         dtype.Datatype
	recordSize int
	data       []byte
	n          int
}

// New creates an empty buffer for a tensor of the given order and
// component type.
func New(order int, dt dtype.Datatype) *Buffer {
	return &Buffer{order: order, dt: dt, recordSize: order*4 + dt.Size()}
}

// Order returns the tensor order this buffer was built for.
func (b *Buffer) Order() int { return b.order }

// Datatype returns the component type this buffer was built for.
func (b *Buffer) Datatype() dtype.Datatype { return b.dt }

// Len returns the number of records appended since the last Clear.
func (b *Buffer) Len() int { return b.n }

// Reserve grows the buffer's capacity to hold at least n more records
// without reallocating on every Insert.
func (b *Buffer) Reserve(n int) {
	need := len(b.data) + n*b.recordSize
	if cap(b.data) >= need {
		return
	}
	grown := make([]byte, len(b.data), need)
	copy(grown, b.data)
	b.data = grown
}

// Insert appends one (coord, value) record. coord must have length
// Order(); value's dynamic type must match Datatype().
func (b *Buffer) Insert(coord []int32, value any) error {
	if len(coord) != b.order {
		return fmt.Errorf("coordbuf: coord has %d components, want %d", len(coord), b.order)
	}
	start := len(b.data)
	b.data = append(b.data, make([]byte, b.recordSize)...)
	rec := b.data[start:]
	for i, c := range coord {
		binary.LittleEndian.PutUint32(rec[i*4:], uint32(c))
	}
	if err := writeValue(b.dt, rec[b.order*4:], value); err != nil {
		b.data = b.data[:start]
		return err
	}
	b.n++
	return nil
}

// Record returns the decoded coordinate tuple and the raw value bytes
// for record i, without decoding the value — the packer copies value
// bytes directly into the output values array rather than round-tripping
// through a typed Go value.
func (b *Buffer) Record(i int) (coord []int32, valueBytes []byte) {
	rec := b.data[i*b.recordSize : (i+1)*b.recordSize]
	coord = make([]int32, b.order)
	for j := range coord {
		coord[j] = int32(binary.LittleEndian.Uint32(rec[j*4:]))
	}
	return coord, rec[b.order*4:]
}

// Value decodes record i's value as a Go value, for callers (notably
// tests) that want a typed value rather than raw bytes.
func (b *Buffer) Value(i int) any {
	_, vb := b.Record(i)
	return readValue(b.dt, vb)
}

// Clear empties the buffer, releasing its backing storage. Pack does not
// call it; the tensor's Zero does.
func (b *Buffer) Clear() {
	b.data = nil
	b.n = 0
}

func writeValue(dt dtype.Datatype, dst []byte, value any) error {
	switch dt {
	case dtype.Bool:
		v, ok := value.(bool)
		if !ok {
			return typeMismatch(dt, value)
		}
		if v {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case dtype.I8:
		v, ok := value.(int8)
		if !ok {
			return typeMismatch(dt, value)
		}
		dst[0] = byte(v)
	case dtype.U8:
		v, ok := value.(uint8)
		if !ok {
			return typeMismatch(dt, value)
		}
		dst[0] = v
	case dtype.I16:
		v, ok := value.(int16)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case dtype.U16:
		v, ok := value.(uint16)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint16(dst, v)
	case dtype.I32:
		v, ok := value.(int32)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint32(dst, uint32(v))
	case dtype.U32:
		v, ok := value.(uint32)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint32(dst, v)
	case dtype.F32:
		v, ok := value.(float32)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	case dtype.I64:
		v, ok := value.(int64)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint64(dst, uint64(v))
	case dtype.U64:
		v, ok := value.(uint64)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint64(dst, v)
	case dtype.F64:
		v, ok := value.(float64)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	case dtype.C64:
		v, ok := value.(complex64)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(real(v)))
		binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(imag(v)))
	case dtype.C128:
		v, ok := value.(complex128)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint64(dst[0:], math.Float64bits(real(v)))
		binary.LittleEndian.PutUint64(dst[8:], math.Float64bits(imag(v)))
	case dtype.I128:
		v, ok := value.(dtype.Int128)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint64(dst[0:], uint64(v.Hi))
		binary.LittleEndian.PutUint64(dst[8:], v.Lo)
	case dtype.U128:
		v, ok := value.(dtype.Uint128)
		if !ok {
			return typeMismatch(dt, value)
		}
		binary.LittleEndian.PutUint64(dst[0:], v.Hi)
		binary.LittleEndian.PutUint64(dst[8:], v.Lo)
	default:
		return fmt.Errorf("coordbuf: unsupported component type %s", dt)
	}
	return nil
}

func readValue(dt dtype.Datatype, src []byte) any {
	switch dt {
	case dtype.Bool:
		return src[0] != 0
	case dtype.I8:
		return int8(src[0])
	case dtype.U8:
		return src[0]
	case dtype.I16:
		return int16(binary.LittleEndian.Uint16(src))
	case dtype.U16:
		return binary.LittleEndian.Uint16(src)
	case dtype.I32:
		return int32(binary.LittleEndian.Uint32(src))
	case dtype.U32:
		return binary.LittleEndian.Uint32(src)
	case dtype.F32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	case dtype.I64:
		return int64(binary.LittleEndian.Uint64(src))
	case dtype.U64:
		return binary.LittleEndian.Uint64(src)
	case dtype.F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	case dtype.C64:
		re := math.Float32frombits(binary.LittleEndian.Uint32(src[0:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(src[4:]))
		return complex(re, im)
	case dtype.C128:
		re := math.Float64frombits(binary.LittleEndian.Uint64(src[0:]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(src[8:]))
		return complex(re, im)
	case dtype.I128:
		return dtype.Int128{Hi: int64(binary.LittleEndian.Uint64(src[0:])), Lo: binary.LittleEndian.Uint64(src[8:])}
	case dtype.U128:
		return dtype.Uint128{Hi: binary.LittleEndian.Uint64(src[0:]), Lo: binary.LittleEndian.Uint64(src[8:])}
	default:
		panic("coordbuf: unsupported component type " + dt.String())
	}
}

func typeMismatch(dt dtype.Datatype, value any) error {
	return fmt.Errorf("coordbuf: value %T does not match component type %s", value, dt)
}

