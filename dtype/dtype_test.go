package dtype

import "testing"

func TestSize(t *testing.T) {
	tests := []struct {
		d    Datatype
		size int
	}{
		{Bool, 1}, {I8, 1}, {U8, 1},
		{I16, 2}, {U16, 2},
		{I32, 4}, {U32, 4}, {F32, 4},
		{I64, 8}, {U64, 8}, {F64, 8}, {C64, 8},
		{I128, 16}, {U128, 16}, {C128, 16},
	}
	for _, tt := range tests {
		if got := tt.d.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.d, got, tt.size)
		}
	}
}

func TestString(t *testing.T) {
	if got := F64.String(); got != "f64" {
		t.Errorf("F64.String() = %q, want %q", got, "f64")
	}
	if got := Undefined.String(); got != "undefined" {
		t.Errorf("Undefined.String() = %q, want %q", got, "undefined")
	}
}

func TestIsNumeric(t *testing.T) {
	if !F32.IsNumeric() {
		t.Error("F32 should be numeric")
	}
	if Bool.IsNumeric() {
		t.Error("Bool should not be numeric")
	}
	if Undefined.IsNumeric() {
		t.Error("Undefined should not be numeric")
	}
}

func TestJoinSameType(t *testing.T) {
	got, err := Join(I32, I32)
	if err != nil {
		t.Fatalf("Join(I32, I32) error: %v", err)
	}
	if got != I32 {
		t.Errorf("Join(I32, I32) = %s, want i32", got)
	}
}

func TestJoinWidensIntToFloat(t *testing.T) {
	got, err := Join(I32, F32)
	if err != nil {
		t.Fatalf("Join(I32, F32) error: %v", err)
	}
	if got != F32 {
		t.Errorf("Join(I32, F32) = %s, want f32", got)
	}
}

func TestJoinWidensFloatRank(t *testing.T) {
	got, err := Join(F32, F64)
	if err != nil {
		t.Fatalf("Join(F32, F64) error: %v", err)
	}
	if got != F64 {
		t.Errorf("Join(F32, F64) = %s, want f64", got)
	}
}

func TestJoinWidensToComplex(t *testing.T) {
	got, err := Join(F64, C64)
	if err != nil {
		t.Fatalf("Join(F64, C64) error: %v", err)
	}
	if got != C128 {
		t.Errorf("Join(F64, C64) = %s, want complex128 (widest operand)", got)
	}
}

func TestJoinSignedUnsignedTie(t *testing.T) {
	got, err := Join(I32, U32)
	if err != nil {
		t.Fatalf("Join(I32, U32) error: %v", err)
	}
	if got != I64 {
		t.Errorf("Join(I32, U32) = %s, want i64", got)
	}
}

func TestJoinRejectsNonNumeric(t *testing.T) {
	if _, err := Join(Bool, I32); err == nil {
		t.Error("Join(Bool, I32) should error")
	}
}
