// Package pack implements the Packer: it converts a tensor's staged
// coordinate buffer into the pos/crd/values arrays of a Storage built for
// a given Format. The algorithm is permute (storage order) -> lexical
// sort -> dedupe adjacent duplicates (last write wins) -> walk levels
// building each level's index arrays, generalized from the COO -> CSR
// conversion to an arbitrary per-mode walk driven by Format.
package pack

import (
	"sort"

	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/coordbuf"
	"github.com/oicirtap/taco/internal/storage"
)

// Options configures a Pack call.
type Options struct {
	// OnDuplicate, if set, is invoked once for every coordinate tuple
	// that overwrites an earlier insert at the same coordinates, before
	// the later value wins. Packages that want this surfaced as a log
	// line, a metric, or an error wire it here rather than the packer
	// owning a logging dependency.
	OnDuplicate func(coord []int32)
}

type record struct {
	coord []int32
	value any
}

// Pack converts buf's staged records into a Storage built for f,
// applying f's mode ordering to permute logical coordinates into storage
// order before sorting. An order-0 buffer (a scalar tensor) produces a
// Storage with a single-element values array and an Index with no levels.
func Pack(buf *coordbuf.Buffer, f *format.Format, opts Options) (*storage.Storage, error) {
	s := storage.New(f)

	if buf.Order() == 0 {
		vals := storage.NewArray(buf.Datatype(), 1)
		if buf.Len() > 0 {
			writeScalar(vals, buf.Value(buf.Len()-1))
		}
		s.SetValues(vals)
		if err := s.SetIndex(storage.NewIndex(f, nil)); err != nil {
			return nil, err
		}
		return s, nil
	}

	recs := collect(buf, f.GetModeOrdering())
	recs = sortAndDedupe(recs, opts.OnDuplicate)

	modes, values := buildLevels(recs, f, buf.Datatype(), buf.Order())

	if err := s.SetIndex(storage.NewIndex(f, modes)); err != nil {
		return nil, err
	}
	s.SetValues(values)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// collect reads every record out of buf and permutes each coordinate
// tuple from logical order into the storage order named by ordering.
func collect(buf *coordbuf.Buffer, ordering []int) []record {
	recs := make([]record, buf.Len())
	for i := 0; i < buf.Len(); i++ {
		logical, _ := buf.Record(i)
		stored := make([]int32, len(logical))
		for storagePos, logicalPos := range ordering {
			stored[storagePos] = logical[logicalPos]
		}
		recs[i] = record{coord: stored, value: buf.Value(i)}
	}
	return recs
}

// sortAndDedupe lexically sorts recs by their (already-permuted) storage
// coordinates and collapses adjacent duplicates, keeping the
// last-inserted value at each coordinate and reporting every collapse
// through onDup.
func sortAndDedupe(recs []record, onDup func([]int32)) []record {
	// A stable sort preserves insertion order among equal keys, which is
	// what makes "last write wins" well-defined after the sort collapses
	// them to adjacent positions.
	sort.SliceStable(recs, func(i, j int) bool {
		return lessCoord(recs[i].coord, recs[j].coord)
	})

	out := recs[:0]
	for i, r := range recs {
		if i > 0 && equalCoord(out[len(out)-1].coord, r.coord) {
			if onDup != nil {
				onDup(r.coord)
			}
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

func lessCoord(a, b []int32) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func equalCoord(a, b []int32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildLevels walks the sorted, deduped records one mode at a time,
// building each level's ModeIndex and the flat values array in the same
// pass. Dense levels record their declared size from the Format's
// backing ModeFormatPack; Sparse levels accumulate pos/crd arrays from
// the coordinate groupings actually present in recs. Each level's index
// arrays are built with the array type f.GetLevelArrayTypes() names for
// that mode, not a single type shared across the whole tensor — a
// Format built with format.WithArrayTypes(dtype.I16, ...) must actually
// produce I16 arrays, not just report them.
func buildLevels(recs []record, f *format.Format, valueType dtype.Datatype, order int) ([]storage.ModeIndex, *storage.Array) {
	modes := make([]storage.ModeIndex, order)
	logicalKinds := f.GetModeFormats()
	logicalArrayTypes := f.GetLevelArrayTypes()
	ordering := f.GetModeOrdering()
	// kinds[level]/arrayTypes[level] are the ModeFormat/array type for
	// storage level `level`; GetModeFormats and GetLevelArrayTypes both
	// return their values in logical order, so both must be permuted the
	// same way collect() already permuted the coordinates themselves.
	kinds := make([]format.ModeFormat, order)
	arrayTypes := make([]dtype.Datatype, order)
	for level, logicalMode := range ordering {
		kinds[level] = logicalKinds[logicalMode]
		arrayTypes[level] = logicalArrayTypes[logicalMode]
	}

	// groups[level] is the list of segment boundaries (into recs) at that
	// level, each segment corresponding to one coordinate value from its
	// parent's perspective. Level 0 starts with a single segment
	// covering every record.
	segments := [][2]int{{0, len(recs)}}

	for level := 0; level < order; level++ {
		kind := kinds[level]
		levelType := arrayTypes[level]
		var next [][2]int

		switch kind.Kind {
		case format.Dense:
			size := kind.DimSize
			if size < 0 {
				size = inferDenseSize(recs, segments, level)
			}
			sizeArr := storage.NewArray(levelType, 1)
			setArrayInt(sizeArr, 0, int64(size))
			modes[level] = storage.ModeIndex{Kind: format.Dense, Arrays: []*storage.Array{sizeArr}}

			for _, seg := range segments {
				next = append(next, denseChildSegments(recs, seg, level, size)...)
			}

		case format.Sparse:
			var crdVals []int32
			pos := []int32{0}
			for _, seg := range segments {
				children := sparseChildSegments(recs, seg, level)
				for _, c := range children {
					crdVals = append(crdVals, recs[c[0]].coord[level])
				}
				pos = append(pos, pos[len(pos)-1]+int32(len(children)))
				next = append(next, children...)
			}
			posArr := storage.NewArray(levelType, len(pos))
			for i, v := range pos {
				setArrayInt(posArr, i, int64(v))
			}
			crdArr := storage.NewArray(levelType, len(crdVals))
			for i, v := range crdVals {
				setArrayInt(crdArr, i, int64(v))
			}
			modes[level] = storage.ModeIndex{Kind: format.Sparse, Arrays: []*storage.Array{posArr, crdArr}}
		}

		segments = next
	}

	// After the last level, segments holds one entry per stored position
	// (every position of a Dense level, only present ones of a Sparse
	// level), in position order; empty segments keep the zero value.
	values := storage.NewArray(valueType, len(segments))
	for i, seg := range segments {
		if seg[0] < seg[1] {
			writeAt(values, i, recs[seg[0]].value)
		}
	}
	return modes, values
}

// denseChildSegments splits seg into `size` contiguous child segments, one
// per possible coordinate value 0..size-1 at level, using the fact that
// recs is sorted so each value's records are contiguous.
func denseChildSegments(recs []record, seg [2]int, level, size int) [][2]int {
	children := make([][2]int, size)
	i := seg[0]
	for v := 0; v < size; v++ {
		start := i
		for i < seg[1] && int(recs[i].coord[level]) == v {
			i++
		}
		children[v] = [2]int{start, i}
	}
	return children
}

// sparseChildSegments splits seg into one child segment per distinct
// coordinate value present at level, skipping values that have no
// records (the point of Sparse: absent values cost nothing).
func sparseChildSegments(recs []record, seg [2]int, level int) [][2]int {
	var children [][2]int
	i := seg[0]
	for i < seg[1] {
		start := i
		v := recs[i].coord[level]
		for i < seg[1] && recs[i].coord[level] == v {
			i++
		}
		children = append(children, [2]int{start, i})
	}
	return children
}

// inferDenseSize is used only when a Format declares a Dense mode
// deferred-size (format.DeferredSize): the packer falls back to the
// largest coordinate actually observed at this level, plus one.
func inferDenseSize(recs []record, segments [][2]int, level int) int {
	max := -1
	for _, seg := range segments {
		for i := seg[0]; i < seg[1]; i++ {
			if c := int(recs[i].coord[level]); c > max {
				max = c
			}
		}
	}
	return max + 1
}

// setArrayInt sets a level array's i'th element from an int64 coordinate
// or count, converting to whichever integer width the level's array
// actually declared. Pos and crd entries only ever hold non-negative
// counts and coordinates, so every integer width storage.Array supports
// is a legal target here, not just the two the packer used to assume.
func setArrayInt(a *storage.Array, i int, v int64) {
	switch a.Datatype() {
	case dtype.I8:
		storage.View[int8](a)[i] = int8(v)
	case dtype.U8:
		storage.View[uint8](a)[i] = uint8(v)
	case dtype.I16:
		storage.View[int16](a)[i] = int16(v)
	case dtype.U16:
		storage.View[uint16](a)[i] = uint16(v)
	case dtype.I32:
		storage.View[int32](a)[i] = int32(v)
	case dtype.U32:
		storage.View[uint32](a)[i] = uint32(v)
	case dtype.I64:
		storage.View[int64](a)[i] = v
	case dtype.U64:
		storage.View[uint64](a)[i] = uint64(v)
	case dtype.I128:
		storage.View[dtype.Int128](a)[i] = dtype.Int128{Lo: uint64(v)}
	case dtype.U128:
		storage.View[dtype.Uint128](a)[i] = dtype.Uint128{Lo: uint64(v)}
	default:
		panic("pack: unsupported index array type " + a.Datatype().String())
	}
}

// writeScalar writes v into a's single element. Used only for order-0
// (scalar) tensors, where values has length 1.
func writeScalar(a *storage.Array, v any) { writeAt(a, 0, v) }

// writeAt writes v into a's i'th element, delegating to storage.Array's
// own type-checked Set so this stays in step with every component type
// Set dispatches instead of keeping a second, narrower switch here.
func writeAt(a *storage.Array, i int, v any) {
	if err := a.Set(i, v); err != nil {
		panic("pack: " + err.Error())
	}
}
