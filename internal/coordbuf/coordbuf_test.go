package coordbuf

import (
	"testing"

	"github.com/oicirtap/taco/dtype"
)

func TestInsertRejectsWrongArity(t *testing.T) {
	b := New(2, dtype.F64)
	if err := b.Insert([]int32{1}, 2.0); err == nil {
		t.Fatal("expected an arity error")
	}
}

func TestInsertRejectsWrongType(t *testing.T) {
	b := New(2, dtype.F64)
	if err := b.Insert([]int32{1, 2}, int32(3)); err == nil {
		t.Fatal("expected a type mismatch error")
	}
}

func TestRoundTripFloat64(t *testing.T) {
	b := New(2, dtype.F64)
	if err := b.Insert([]int32{1, 2}, 3.5); err != nil {
		t.Fatal(err)
	}
	if err := b.Insert([]int32{0, 0}, 1.0); err != nil {
		t.Fatal(err)
	}
	if got := b.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	coord, _ := b.Record(0)
	if coord[0] != 1 || coord[1] != 2 {
		t.Errorf("Record(0) coord = %v, want [1 2]", coord)
	}
	if v := b.Value(0); v != 3.5 {
		t.Errorf("Value(0) = %v, want 3.5", v)
	}
}

func TestRoundTripComplex128(t *testing.T) {
	b := New(1, dtype.C128)
	if err := b.Insert([]int32{5}, complex(1.5, -2.5)); err != nil {
		t.Fatal(err)
	}
	if v := b.Value(0); v != complex(1.5, -2.5) {
		t.Errorf("Value(0) = %v, want (1.5-2.5i)", v)
	}
}

func TestClearResetsLength(t *testing.T) {
	b := New(1, dtype.F64)
	_ = b.Insert([]int32{0}, 1.0)
	b.Clear()
	if got := b.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
}

func TestReserveDoesNotChangeLen(t *testing.T) {
	b := New(1, dtype.F64)
	b.Reserve(100)
	if got := b.Len(); got != 0 {
		t.Errorf("Len() after Reserve = %d, want 0", got)
	}
}
