package storage

import (
	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
)

// ModeIndex holds the index arrays for one stored mode. Its meaning is
// dictated by the mode's kind: Dense holds a single one-element array
// carrying the mode's size; Sparse holds two arrays, pos and crd.
type ModeIndex struct {
	Kind   format.Kind
	Arrays []*Array
}

// NewDenseModeIndex builds the ModeIndex for a Dense level of the given
// size.
func NewDenseModeIndex(arrayType dtype.Datatype, size int) ModeIndex {
	sizeArr := NewArray(arrayType, 1)
	setInt(sizeArr, 0, int64(size))
	return ModeIndex{Kind: format.Dense, Arrays: []*Array{sizeArr}}
}

// NewSparseModeIndex builds the ModeIndex for a Sparse level from
// already-constructed pos/crd arrays.
func NewSparseModeIndex(pos, crd *Array) ModeIndex {
	return ModeIndex{Kind: format.Sparse, Arrays: []*Array{pos, crd}}
}

// Size returns a Dense level's declared size. Panics if Kind is not
// Dense.
func (mi ModeIndex) Size() int {
	if mi.Kind != format.Dense {
		panic("storage: Size called on a non-Dense ModeIndex")
	}
	return int(getInt(mi.Arrays[0], 0))
}

// Pos returns a Sparse level's pos array. Panics if Kind is not Sparse.
func (mi ModeIndex) Pos() *Array {
	if mi.Kind != format.Sparse {
		panic("storage: Pos called on a non-Sparse ModeIndex")
	}
	return mi.Arrays[0]
}

// Crd returns a Sparse level's crd array. Panics if Kind is not Sparse.
func (mi ModeIndex) Crd() *Array {
	if mi.Kind != format.Sparse {
		panic("storage: Crd called on a non-Sparse ModeIndex")
	}
	return mi.Arrays[1]
}

// Index is an ordered list of ModeIndex, one per mode in storage order,
// tied to the Format that produced it.
type Index struct {
	format *format.Format
	modes  []ModeIndex
}

// NewIndex builds an Index from per-level ModeIndex values, already in
// storage order, tied to f.
func NewIndex(f *format.Format, modes []ModeIndex) *Index {
	return &Index{format: f, modes: modes}
}

// Format returns the Format this index was built for.
func (idx *Index) Format() *format.Format { return idx.format }

// Modes returns the per-level ModeIndex values, in storage order.
func (idx *Index) Modes() []ModeIndex { return idx.modes }

// Size returns the total number of stored value-slots: the number of
// coordinate tuples a full depth-first walk of the index tree would
// visit. It is computed by walking levels top-down, tracking how many
// parent positions are live at each level.
func (idx *Index) Size() int {
	if len(idx.modes) == 0 {
		return 1 // order-0 (scalar) tensor: exactly one slot.
	}
	parentCount := 1
	for _, mi := range idx.modes {
		switch mi.Kind {
		case format.Dense:
			parentCount *= mi.Size()
		case format.Sparse:
			pos := mi.Pos()
			parentCount = int(getInt(pos, pos.Len()-1))
		}
	}
	return parentCount
}

// setInt and getInt let ModeIndex read and write its size/pos/crd
// entries as plain int64 regardless of which integer width a level's
// array actually declared, covering every width NewArray can build a
// level array from, not just the two the index used to assume.
func setInt(a *Array, i int, v int64) {
	switch a.Datatype() {
	case dtype.I8:
		View[int8](a)[i] = int8(v)
	case dtype.U8:
		View[uint8](a)[i] = uint8(v)
	case dtype.I16:
		View[int16](a)[i] = int16(v)
	case dtype.U16:
		View[uint16](a)[i] = uint16(v)
	case dtype.I32:
		View[int32](a)[i] = int32(v)
	case dtype.U32:
		View[uint32](a)[i] = uint32(v)
	case dtype.I64:
		View[int64](a)[i] = v
	case dtype.U64:
		View[uint64](a)[i] = uint64(v)
	case dtype.I128:
		View[dtype.Int128](a)[i] = dtype.Int128{Lo: uint64(v)}
	case dtype.U128:
		View[dtype.Uint128](a)[i] = dtype.Uint128{Lo: uint64(v)}
	default:
		panic("storage: setInt on unsupported array type " + a.Datatype().String())
	}
}

func getInt(a *Array, i int) int64 {
	switch a.Datatype() {
	case dtype.I8:
		return int64(View[int8](a)[i])
	case dtype.U8:
		return int64(View[uint8](a)[i])
	case dtype.I16:
		return int64(View[int16](a)[i])
	case dtype.U16:
		return int64(View[uint16](a)[i])
	case dtype.I32:
		return int64(View[int32](a)[i])
	case dtype.U32:
		return int64(View[uint32](a)[i])
	case dtype.I64:
		return View[int64](a)[i]
	case dtype.U64:
		return int64(View[uint64](a)[i])
	case dtype.I128:
		return int64(View[dtype.Int128](a)[i].Lo)
	case dtype.U128:
		return int64(View[dtype.Uint128](a)[i].Lo)
	default:
		panic("storage: getInt on unsupported array type " + a.Datatype().String())
	}
}
