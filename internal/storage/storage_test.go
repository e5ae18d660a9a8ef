package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oicirtap/taco/dtype"
	"github.com/oicirtap/taco/format"
)

func TestArrayViewRoundTrip(t *testing.T) {
	a := NewArray(dtype.F64, 4)
	vals := View[float64](a)
	for i := range vals {
		vals[i] = float64(i) * 1.5
	}
	want := []float64{0, 1.5, 3, 4.5}
	if diff := cmp.Diff(want, View[float64](a)); diff != "" {
		t.Errorf("View[float64](a) diff (-want +got):\n%s", diff)
	}
}

func TestArrayViewPanicsOnSizeMismatch(t *testing.T) {
	a := NewArray(dtype.I32, 4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected View[int64] on an i32 array to panic")
		}
	}()
	View[int64](a)
}

func TestUserOwnsArrayIsNotFreed(t *testing.T) {
	data := make([]byte, 16)
	a := NewArrayFromBytes(dtype.I32, data, 4, UserOwns)
	a.Release()
	if a.Len() != 4 {
		t.Errorf("UserOwns array length changed after Release: got %d, want 4", a.Len())
	}
}

func TestDenseModeIndexSize(t *testing.T) {
	mi := NewDenseModeIndex(dtype.I32, 7)
	if got := mi.Size(); got != 7 {
		t.Errorf("Size() = %d, want 7", got)
	}
}

func TestIndexSizeWalksDenseThenSparse(t *testing.T) {
	f, err := format.CSR(2, 3)
	if err != nil {
		t.Fatal(err)
	}
	rows := NewDenseModeIndex(dtype.I32, 2)
	pos := NewArray(dtype.I32, 3) // 2 rows -> 3 pos entries
	View[int32](pos)[0] = 0
	View[int32](pos)[1] = 2
	View[int32](pos)[2] = 3
	crd := NewArray(dtype.I32, 3)
	cols := NewSparseModeIndex(pos, crd)

	idx := NewIndex(f, []ModeIndex{rows, cols})
	if got, want := idx.Size(), 3; got != want {
		t.Errorf("Index.Size() = %d, want %d", got, want)
	}
}

// TestIndexPosCrdStructuralEquality builds the same CSR index twice from
// independently-allocated arrays and checks the two indexes' pos/crd
// contents structurally, the same "same shape, different backing
// memory" comparison Format.Equal makes for a Format: two tensors packed
// from identical coordinates and an equal Format must produce
// byte-identical index arrays.
func TestIndexPosCrdStructuralEquality(t *testing.T) {
	build := func() *Index {
		rows := NewDenseModeIndex(dtype.I32, 2)
		pos := NewArray(dtype.I32, 3)
		View[int32](pos)[0], View[int32](pos)[1], View[int32](pos)[2] = 0, 2, 3
		crd := NewArray(dtype.I32, 3)
		View[int32](crd)[0], View[int32](crd)[1], View[int32](crd)[2] = 0, 1, 2
		return NewIndex(nil, []ModeIndex{rows, NewSparseModeIndex(pos, crd)})
	}
	a, b := build(), build()

	if diff := cmp.Diff(View[int32](a.Modes()[1].Pos()), View[int32](b.Modes()[1].Pos())); diff != "" {
		t.Errorf("pos diff (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(View[int32](a.Modes()[1].Crd()), View[int32](b.Modes()[1].Crd())); diff != "" {
		t.Errorf("crd diff (-a +b):\n%s", diff)
	}
}

func TestScalarIndexSize(t *testing.T) {
	idx := NewIndex(nil, nil)
	if got := idx.Size(); got != 1 {
		t.Errorf("scalar Index.Size() = %d, want 1", got)
	}
}

func TestStorageSizeInBytes(t *testing.T) {
	f, _ := format.DenseFormat(2, 2)
	s := New(f)
	idx := NewIndex(f, []ModeIndex{NewDenseModeIndex(dtype.I32, 2), NewDenseModeIndex(dtype.I32, 2)})
	if err := s.SetIndex(idx); err != nil {
		t.Fatal(err)
	}
	s.SetValues(NewArray(dtype.F32, 4))

	want := 1*4 + 1*4 + 4*4 // two dense size-arrays (i32) + 4 f32 values
	if got := s.SizeInBytes(); got != want {
		t.Errorf("SizeInBytes() = %d, want %d", got, want)
	}
}
