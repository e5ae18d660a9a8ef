package format

// Kind names the storage strategy for one mode (one axis) of a tensor.
// Kind is a closed enum today because nothing in this module's scope
// needs a third kind beyond Dense/Sparse yet, but ModeFormat's shape (a
// kind tag plus kind-specific fields) is what would grow to add one.
type Kind int

const (
	// Dense stores the mode as a contiguous range [0, size): no pos/crd
	// arrays, just an implicit size.
	Dense Kind = iota
	// Sparse stores the mode as compressed (pos, crd) arrays.
	Sparse
)

func (k Kind) String() string {
	switch k {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	default:
		return "unknown"
	}
}

// ModeFormat describes how one mode is stored. Dense may carry a
// compile-time-known size (DimSize >= 0) or defer to the tensor's runtime
// dimension (DimSize == -1, the DeferredSize sentinel).
type ModeFormat struct {
	Kind    Kind
	DimSize int // meaningful only for Dense; DeferredSize when unset.
}

// DeferredSize marks a Dense mode whose size is not known until the
// tensor it belongs to supplies a runtime dimension.
const DeferredSize = -1

// NewDense builds a Dense mode format with a compile-time-known size.
func NewDense(size int) ModeFormat { return ModeFormat{Kind: Dense, DimSize: size} }

// NewDenseDeferred builds a Dense mode format that takes its size from
// the tensor's runtime dimension.
func NewDenseDeferred() ModeFormat { return ModeFormat{Kind: Dense, DimSize: DeferredSize} }

// NewSparse builds a Sparse mode format.
func NewSparse() ModeFormat { return ModeFormat{Kind: Sparse} }

// IsFull reports whether every coordinate in the mode's size range is
// guaranteed to be present. Dense modes are full by construction; sparse
// modes are not.
func (m ModeFormat) IsFull() bool { return m.Kind == Dense }

// IsOrdered reports whether coordinates within a parent bucket are
// guaranteed strictly increasing. Both kinds this module implements
// maintain that invariant (Dense implicitly, Sparse by construction in
// the packer), so IsOrdered is always true today; it is still a method
// (rather than a constant) so a future unordered mode kind has somewhere
// to report false.
func (m ModeFormat) IsOrdered() bool { return true }

// IsUnique reports whether a coordinate can appear at most once per
// parent bucket. True for both kinds this module implements, for the
// same reason as IsOrdered.
func (m ModeFormat) IsUnique() bool { return true }

// LevelArrayTypes returns how many level arrays this mode's kind
// contributes when the user omits an explicit array-type list: Dense
// contributes one array (its size declaration), Sparse contributes two
// (pos and crd).
func (m ModeFormat) LevelArrayTypes() int {
	switch m.Kind {
	case Dense:
		return 1
	case Sparse:
		return 2
	default:
		return 0
	}
}
