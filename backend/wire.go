// Package backend defines the boundary between the core tensor machinery
// and a code-generating (or interpreting) kernel backend: the
// KernelBackend collaborator interface and the taco-tensor-t wire struct
// a backend is handed.
package backend

import (
	"fmt"
	"unsafe"

	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/storage"
)

// ModeType is the wire encoding of a ModeFormat's kind: Dense=0,
// Sparse=1.
type ModeType uint8

const (
	ModeDense  ModeType = 0
	ModeSparse ModeType = 1
)

// TacoTensorT is the hand-off struct between the core and a generated
// (or interpreted) kernel. Dimensions, ModeOrdering, ModeTypes and
// Indices are Go slices, so this is not a C-compatible, bit-exact
// layout; it is read by in-process Go backends such as refkernel.
// Dimensions and Csize are in logical mode order; ModeOrdering,
// ModeTypes, and Indices are in storage order (level ℓ describes
// logical mode ModeOrdering[ℓ]) — the same convention format.Format
// itself uses.
type TacoTensorT struct {
	Order        int32
	Dimensions   []int32 // length Order, logical order
	Csize        int32   // component byte size
	ModeOrdering []int32 // length Order, storage order
	ModeTypes    []ModeType
	// Indices holds, per storage level, the level's raw index arrays:
	// one ([]int32-backed) array for Dense (its declared size,
	// redundant with Dimensions but carried for wire fidelity), two
	// (pos, crd) for Sparse. nil when the tensor has not been packed
	// yet (the "shape-only" wire struct assemble is handed).
	Indices [][]unsafe.Pointer
	Vals     unsafe.Pointer
	ValsSize int64
}

// ToWire converts a packed (or shape-only) Storage into the wire struct
// a KernelBackend consumes. dims gives each logical mode's declared
// dimension size (Storage alone does not carry this for Sparse modes,
// which have no fixed size array); dt is the tensor's component type.
// When s has no Index yet (the output tensor before assemble runs),
// ToWire still populates the shape fields so the backend can determine
// iteration bounds, leaving Indices/Vals empty.
func ToWire(s *storage.Storage, dims []int, dt dtype.Datatype) (*TacoTensorT, error) {
	f := s.Format()
	order := f.GetOrder()
	if len(dims) != order {
		return nil, fmt.Errorf("backend: ToWire: %d dims for order %d", len(dims), order)
	}

	dimensions := make([]int32, order)
	for i, d := range dims {
		dimensions[i] = int32(d)
	}

	ordering := f.GetModeOrdering()
	modeOrdering := make([]int32, order)
	for i, m := range ordering {
		modeOrdering[i] = int32(m)
	}

	logicalKinds := f.GetModeFormats()
	modeTypes := make([]ModeType, order)
	for level, logicalMode := range ordering {
		if logicalKinds[logicalMode].Kind == format.Sparse {
			modeTypes[level] = ModeSparse
		} else {
			modeTypes[level] = ModeDense
		}
	}

	w := &TacoTensorT{
		Order:        int32(order),
		Dimensions:   dimensions,
		Csize:        int32(dt.Size()),
		ModeOrdering: modeOrdering,
		ModeTypes:    modeTypes,
	}

	idx := s.GetIndex()
	if idx == nil {
		return w, nil
	}
	w.Indices = make([][]unsafe.Pointer, order)
	for level, mi := range idx.Modes() {
		ptrs := make([]unsafe.Pointer, len(mi.Arrays))
		for i, a := range mi.Arrays {
			ptrs[i] = arrayPointer(a)
		}
		w.Indices[level] = ptrs
	}
	if vals := s.GetValues(); vals != nil {
		w.Vals = arrayPointer(vals)
		w.ValsSize = int64(vals.Len())
	}
	return w, nil
}

func arrayPointer(a *storage.Array) unsafe.Pointer {
	b := a.Bytes()
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// FromWire reconstructs a Format and Storage from a populated
// TacoTensorT, given the component type (the wire struct itself only
// carries Csize, a byte count, not a type tag — the caller always knows
// the type from the notation.Access node the tensor came from). Index
// array element types are assumed int32, this module's default
// (format.New's default array type), since the wire struct does not
// separately tag index-array width.
func FromWire(w *TacoTensorT, dt dtype.Datatype) (*storage.Storage, *format.Format, []int, error) {
	order := int(w.Order)
	dims := make([]int, order)
	for i, d := range w.Dimensions {
		dims[i] = int(d)
	}
	ordering := make([]int, order)
	for i, m := range w.ModeOrdering {
		ordering[i] = int(m)
	}

	packs := make([]format.ModeFormatPack, order)
	for logicalMode := range packs {
		level := indexOfInt32(w.ModeOrdering, int32(logicalMode))
		if w.ModeTypes[level] == ModeSparse {
			packs[logicalMode] = format.Pack(format.NewSparse())
		} else {
			packs[logicalMode] = format.Pack(format.NewDense(dims[logicalMode]))
		}
	}
	f, err := format.New(packs, format.WithOrdering(ordering...))
	if err != nil {
		return nil, nil, nil, err
	}

	s := storage.New(f)
	if w.Indices == nil && w.Vals == nil {
		return s, f, dims, nil
	}

	modes := make([]storage.ModeIndex, order)
	parentCount := 1
	for level := 0; level < order; level++ {
		logicalMode := ordering[level]
		if w.ModeTypes[level] == ModeDense {
			size := dims[logicalMode]
			modes[level] = storage.NewDenseModeIndex(dtype.I32, size)
			parentCount *= size
			continue
		}
		posLen := parentCount + 1
		pos := unsafeInt32View(w.Indices[level][0], posLen)
		crdLen := int(pos[posLen-1])
		crd := unsafeInt32View(w.Indices[level][1], crdLen)
		posArr := storage.NewArrayFromBytes(dtype.I32, int32BytesView(pos), posLen, storage.UserOwns)
		crdArr := storage.NewArrayFromBytes(dtype.I32, int32BytesView(crd), crdLen, storage.UserOwns)
		modes[level] = storage.NewSparseModeIndex(posArr, crdArr)
		parentCount = crdLen
	}
	if err := s.SetIndex(storage.NewIndex(f, modes)); err != nil {
		return nil, nil, nil, err
	}

	if w.Vals != nil {
		valBytes := unsafe.Slice((*byte)(w.Vals), int(w.ValsSize)*dt.Size())
		s.SetValues(storage.NewArrayFromBytes(dt, valBytes, int(w.ValsSize), storage.UserOwns))
	}
	return s, f, dims, nil
}

func indexOfInt32(xs []int32, v int32) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func unsafeInt32View(p unsafe.Pointer, length int) []int32 {
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(p), length)
}

func int32BytesView(xs []int32) []byte {
	if len(xs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&xs[0])), len(xs)*4)
}
