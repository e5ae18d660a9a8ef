// Package format describes how a tensor's modes are stored: per-mode
// kind (dense/sparse), the permutation giving their storage order, and
// the coordinate-array element type used at each level. A Format drives
// both the storage layout (internal/storage) and the shape the packer
// must produce (internal/pack); it never itself holds data.
package format

import (
	"fmt"

	"github.com/oicirtap/taco/dtype"
	"go.uber.org/multierr"
)

// ModeFormatPack is an ordered, contiguously-stored group of ModeFormats
// — a "super-mode". A pack of size 1 is the common case (one logical mode
// per level); packs larger than 1 describe block formats, where several
// logical modes share one physical level.
type ModeFormatPack struct {
	Modes []ModeFormat
}

// Pack is a convenience constructor for a ModeFormatPack.
func Pack(modes ...ModeFormat) ModeFormatPack { return ModeFormatPack{Modes: modes} }

// Size returns the number of logical modes this pack groups.
func (p ModeFormatPack) Size() int { return len(p.Modes) }

// Format is an ordered list of ModeFormatPacks, a mode-ordering
// permutation, and a per-mode coordinate-array element type. Order is the
// sum of the packs' sizes and must equal the length of the ordering.
type Format struct {
	packs      []ModeFormatPack
	ordering   []int
	arrayTypes []dtype.Datatype
}

// Option configures an optional aspect of a Format at construction time.
type Option func(*buildState)

type buildState struct {
	ordering   []int
	arrayTypes []dtype.Datatype
}

// WithOrdering supplies an explicit mode-ordering permutation. Omitted,
// the ordering defaults to identity ([0, 1, ..., order-1]).
func WithOrdering(ordering ...int) Option {
	return func(b *buildState) { b.ordering = append([]int(nil), ordering...) }
}

// WithArrayTypes overrides the default i32 coordinate-array element type
// per logical mode. The slice must have length equal to the format's
// order.
func WithArrayTypes(types ...dtype.Datatype) Option {
	return func(b *buildState) { b.arrayTypes = append([]dtype.Datatype(nil), types...) }
}

// New builds a Format from an ordered list of mode packs and options.
// The ordering defaults to identity; coordinate-array types default to
// dtype.I32 per mode. New validates that the ordering is a permutation of
// [0, order) and that every mode names a supported Kind, collecting every
// violation it finds rather than stopping at the first.
func New(packs []ModeFormatPack, opts ...Option) (*Format, error) {
	order := 0
	for _, p := range packs {
		order += p.Size()
	}

	b := &buildState{}
	for _, opt := range opts {
		opt(b)
	}

	var errs error
	for _, p := range packs {
		for _, m := range p.Modes {
			if m.Kind != Dense && m.Kind != Sparse {
				errs = multierr.Append(errs, fmt.Errorf("%w: kind %v", UnsupportedMode, m.Kind))
			}
		}
	}

	ordering := b.ordering
	if ordering == nil {
		ordering = identity(order)
	} else if err := validatePermutation(ordering, order); err != nil {
		errs = multierr.Append(errs, err)
	}

	arrayTypes := b.arrayTypes
	if arrayTypes == nil {
		arrayTypes = make([]dtype.Datatype, order)
		for i := range arrayTypes {
			arrayTypes[i] = dtype.I32
		}
	} else if len(arrayTypes) != order {
		errs = multierr.Append(errs, fmt.Errorf("format: %d array types for order %d", len(arrayTypes), order))
	}

	if errs != nil {
		return nil, &Error{cause: errs}
	}

	return &Format{
		packs:      append([]ModeFormatPack(nil), packs...),
		ordering:   ordering,
		arrayTypes: arrayTypes,
	}, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func validatePermutation(ordering []int, order int) error {
	if len(ordering) != order {
		return fmt.Errorf("format: ordering has length %d, want %d", len(ordering), order)
	}
	seen := make([]bool, order)
	for _, p := range ordering {
		if p < 0 || p >= order || seen[p] {
			return fmt.Errorf("format: ordering %v is not a permutation of [0, %d)", ordering, order)
		}
		seen[p] = true
	}
	return nil
}

// GetOrder returns the tensor order (number of logical modes) this
// Format describes.
func (f *Format) GetOrder() int {
	n := 0
	for _, p := range f.packs {
		n += p.Size()
	}
	return n
}

// GetModeFormats returns the per-mode formats flattened out of their
// packs, in logical index order (not storage order).
func (f *Format) GetModeFormats() []ModeFormat {
	out := make([]ModeFormat, 0, f.GetOrder())
	for _, p := range f.packs {
		out = append(out, p.Modes...)
	}
	return out
}

// GetModeFormatPacks returns the packs as given to New, preserving any
// block grouping.
func (f *Format) GetModeFormatPacks() []ModeFormatPack {
	return append([]ModeFormatPack(nil), f.packs...)
}

// GetModeOrdering returns the permutation giving the storage order of the
// logical modes: storage level ℓ holds logical mode GetModeOrdering()[ℓ].
func (f *Format) GetModeOrdering() []int {
	return append([]int(nil), f.ordering...)
}

// GetLevelArrayTypes returns, for each mode in logical order, the
// coordinate-array element type used for that mode's pos/crd (or size)
// arrays.
func (f *Format) GetLevelArrayTypes() []dtype.Datatype {
	return append([]dtype.Datatype(nil), f.arrayTypes...)
}

// Equal reports structural equality: same packs (kind and size per mode),
// same ordering, same array types.
func (f *Format) Equal(other *Format) bool {
	if f == nil || other == nil {
		return f == other
	}
	if len(f.packs) != len(other.packs) {
		return false
	}
	for i := range f.packs {
		if f.packs[i].Size() != other.packs[i].Size() {
			return false
		}
		for j, m := range f.packs[i].Modes {
			om := other.packs[i].Modes[j]
			if m.Kind != om.Kind || m.DimSize != om.DimSize {
				return false
			}
		}
	}
	if len(f.ordering) != len(other.ordering) {
		return false
	}
	for i := range f.ordering {
		if f.ordering[i] != other.ordering[i] {
			return false
		}
	}
	if len(f.arrayTypes) != len(other.arrayTypes) {
		return false
	}
	for i := range f.arrayTypes {
		if f.arrayTypes[i] != other.arrayTypes[i] {
			return false
		}
	}
	return true
}

// DenseFormat builds a Format where every mode is Dense, in identity
// order — the common "fully dense" layout.
func DenseFormat(dimSizes ...int) (*Format, error) {
	packs := make([]ModeFormatPack, len(dimSizes))
	for i, sz := range dimSizes {
		packs[i] = Pack(NewDense(sz))
	}
	return New(packs)
}

// CSR builds the classic compressed-sparse-row matrix format: mode 0
// dense (rows), mode 1 sparse (columns), identity ordering.
func CSR(rows, cols int) (*Format, error) {
	return New([]ModeFormatPack{Pack(NewDense(rows)), Pack(NewSparse())})
}

// CSC builds the compressed-sparse-column matrix format: logical mode 0
// (rows) is Sparse, logical mode 1 (cols) is Dense, and storage visits
// columns before rows, so the mode ordering swaps them.
func CSC(rows, cols int) (*Format, error) {
	return New(
		[]ModeFormatPack{Pack(NewSparse()), Pack(NewDense(cols))},
		WithOrdering(1, 0),
	)
}
