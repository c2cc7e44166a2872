package valueobjects

import (
	"fmt"
	"strconv"
)

// AtomID is a value object identifying an atom within a document.
// IDs are opaque, stable, allocated monotonically per document and never
// reused, even after the atom is removed from a resolved structure.
type AtomID uint64

// ParseAtomID parses the decimal string form of an AtomID
func ParseAtomID(s string) (AtomID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid atom ID %q: %w", s, err)
	}
	return AtomID(v), nil
}

// String returns the decimal representation of the AtomID
func (id AtomID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
