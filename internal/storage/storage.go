package storage

import (
	"fmt"

	"github.com/oicirtap/taco/format"
)

// Storage owns a Format, an Index, and a typed values Array. It
// exclusively owns the Index and the values Array unless they were
// registered UserOwns — in that case the core must not free the buffer
// on release.
type Storage struct {
	format *format.Format
	index  *Index
	values *Array
}

// New builds an empty Storage for f: no index, no values.
func New(f *format.Format) *Storage {
	return &Storage{format: f}
}

// Format returns the storage's Format.
func (s *Storage) Format() *format.Format { return s.format }

// SetIndex installs idx, releasing whatever index was previously
// installed (unless it was UserOwns).
func (s *Storage) SetIndex(idx *Index) error {
	if idx != nil && idx.Format() != nil && !idx.Format().Equal(s.format) {
		return fmt.Errorf("storage: index format does not match storage format")
	}
	if s.index != nil && s.index != idx {
		for _, mi := range s.index.Modes() {
			for _, a := range mi.Arrays {
				a.Release()
			}
		}
	}
	s.index = idx
	return nil
}

// GetIndex returns the currently installed index, or nil.
func (s *Storage) GetIndex() *Index { return s.index }

// SetValues installs vals as the values array, releasing whatever values
// array was previously installed (unless it was UserOwns). The length of
// vals must equal the index's Size() once both are installed; this is
// checked by Validate rather than here, since
// SetIndex and SetValues may be called in either order while assembling
// a tensor.
func (s *Storage) SetValues(vals *Array) {
	if s.values != nil {
		s.values.Release()
	}
	s.values = vals
}

// GetValues returns the currently installed values array, or nil.
func (s *Storage) GetValues() *Array { return s.values }

// Validate checks the values/index size invariant: values.Len() ==
// index.Size().
func (s *Storage) Validate() error {
	if s.index == nil || s.values == nil {
		return nil
	}
	if got, want := s.values.Len(), s.index.Size(); got != want {
		return fmt.Errorf("storage: values length %d does not match index size %d", got, want)
	}
	return nil
}

// SizeInBytes returns the total memory this storage occupies: the sum of
// every index-level array's byte footprint plus the values array's.
func (s *Storage) SizeInBytes() int {
	total := 0
	if s.index != nil {
		for _, mi := range s.index.Modes() {
			for _, a := range mi.Arrays {
				total += a.Len() * a.Datatype().Size()
			}
		}
	}
	if s.values != nil {
		total += s.values.Len() * s.values.Datatype().Size()
	}
	return total
}

// Release frees the index's and values' Owned backing buffers.
func (s *Storage) Release() {
	if s.index != nil {
		for _, mi := range s.index.Modes() {
			for _, a := range mi.Arrays {
				a.Release()
			}
		}
	}
	if s.values != nil {
		s.values.Release()
	}
}
