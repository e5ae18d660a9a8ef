package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

// Equal reports whether a and b hold the same component type, order,
// and dimensions, and, iterating both in storage order while skipping
// zero-valued entries, every surviving (coord, value) pair matches
// within a relative float tolerance of 1e-6. Both tensors are synced
// first, so a pending insert or assignment never produces a stale
// comparison.
func Equal(a, b *TensorContent) (bool, error) {
	if a.dtype != b.dtype || len(a.dims) != len(b.dims) {
		return false, nil
	}
	for i := range a.dims {
		if a.dims[i].Size != b.dims[i].Size {
			return false, nil
		}
	}

	am, err := nonZeroEntries(a)
	if err != nil {
		return false, errors.Wrap(err, "core: equal: a")
	}
	bm, err := nonZeroEntries(b)
	if err != nil {
		return false, errors.Wrap(err, "core: equal: b")
	}

	return cmp.Equal(am, bm,
		cmp.Comparer(approxEqualF64),
		cmp.Comparer(approxEqualF32),
	), nil
}

func nonZeroEntries(c *TensorContent) (map[string]any, error) {
	it, err := c.Iterate()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for it.Next() {
		v := it.Value()
		if isZeroValue(v) {
			continue
		}
		out[coordKey(it.Coord())] = v
	}
	return out, nil
}

func coordKey(coord []int) string {
	var b strings.Builder
	for i, x := range coord {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", x)
	}
	return b.String()
}

func isZeroValue(v any) bool {
	switch x := v.(type) {
	case bool:
		return !x
	case int8:
		return x == 0
	case uint8:
		return x == 0
	case int16:
		return x == 0
	case uint16:
		return x == 0
	case int32:
		return x == 0
	case uint32:
		return x == 0
	case int64:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	case complex64:
		return x == 0
	case complex128:
		return x == 0
	default:
		return false
	}
}

// approxEqualF64 implements §8.2's "relative float tolerance 1e-6" for
// float64-valued leaves; cmp dispatches to it only when both map values
// compared happen to be float64 at that key.
func approxEqualF64(a, b float64) bool { return approxEqual(a, b) }

// approxEqualF32 is approxEqualF64's float32 counterpart.
func approxEqualF32(a, b float32) bool { return approxEqual(float64(a), float64(b)) }

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	d := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return d <= 1e-6*scale
}

