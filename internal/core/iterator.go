package core

import (
	"github.com/oicirtap/taco/format"
	"github.com/oicirtap/taco/internal/storage"
)

// frame is one level's DFS position: the range [lo, hi) of children of
// parentPos still to visit, and cur, the next one to try. Keeping this
// on an explicit stack rather than recursing lets Next() suspend and
// resume across calls instead of needing a goroutine/channel pump.
type frame struct {
	level     int
	parentPos int
	lo, hi    int
	cur       int
}

// Iterator walks a TensorContent's storage in storage order, yielding
// (coord, value) pairs. Built by TensorContent.Iterate, which syncs the
// tensor first so the walk never observes stale state.
type Iterator struct {
	modes    []storage.ModeIndex
	ordering []int
	values   *storage.Array

	storageCoord []int32
	stack        []frame

	scalar    bool
	scalarLeft bool
	noValues  bool

	curValuePos int
}

// Iterate returns an Iterator over c's current contents, syncing first.
func (c *TensorContent) Iterate() (*Iterator, error) {
	if err := c.SyncValues(); err != nil {
		return nil, err
	}
	idx := c.storage.GetIndex()
	it := &Iterator{
		ordering: c.format.GetModeOrdering(),
		values:   c.storage.GetValues(),
	}
	if idx == nil {
		it.noValues = true
		return it, nil
	}
	it.modes = idx.Modes()
	if len(c.dims) == 0 {
		it.scalar = true
		it.scalarLeft = true
		return it, nil
	}
	it.storageCoord = make([]int32, len(it.modes))
	lo, hi := it.levelRange(0, 0)
	it.stack = append(it.stack, frame{level: 0, parentPos: 0, lo: lo, hi: hi, cur: lo})
	return it, nil
}

func (it *Iterator) levelRange(level, parentPos int) (int, int) {
	mi := it.modes[level]
	if mi.Kind == format.Dense {
		return 0, mi.Size()
	}
	pos := storage.View[int32](mi.Pos())
	return int(pos[parentPos]), int(pos[parentPos+1])
}

// coordAndChild returns the storage coordinate value at (level, cur) and
// the parentPos a level+1 frame should use: for Dense,
// parentPos*size+cur; for Sparse, cur itself (it already indexes crd,
// which is exactly what the next level's pos array is addressed by).
func (it *Iterator) coordAndChild(level, parentPos, cur int) (int32, int) {
	mi := it.modes[level]
	if mi.Kind == format.Dense {
		return int32(cur), parentPos*mi.Size() + cur
	}
	crd := storage.View[int32](mi.Crd())
	return crd[cur], cur
}

// Next advances to the next stored element, returning false once
// exhausted.
func (it *Iterator) Next() bool {
	if it.noValues {
		return false
	}
	if it.scalar {
		if !it.scalarLeft {
			return false
		}
		it.scalarLeft = false
		it.curValuePos = 0
		return true
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.cur >= top.hi {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		coordVal, childParentPos := it.coordAndChild(top.level, top.parentPos, top.cur)
		it.storageCoord[top.level] = coordVal
		top.cur++

		if top.level == len(it.modes)-1 {
			it.curValuePos = childParentPos
			return true
		}
		lo, hi := it.levelRange(top.level+1, childParentPos)
		it.stack = append(it.stack, frame{level: top.level + 1, parentPos: childParentPos, lo: lo, hi: hi, cur: lo})
	}
	return false
}

// Coord returns the current element's coordinate in logical mode order.
func (it *Iterator) Coord() []int {
	if it.scalar {
		return nil
	}
	out := make([]int, len(it.storageCoord))
	for level, v := range it.storageCoord {
		out[it.ordering[level]] = int(v)
	}
	return out
}

// Value returns the current element's value, typed per the tensor's
// component type.
func (it *Iterator) Value() any {
	return it.values.At(it.curValuePos)
}
