package valueobjects

import "fmt"

// BondKey is a value object identifying a bond by its unordered endpoint pair.
// The constructor normalizes endpoint order so (a,b) and (b,a) compare equal
// and hash identically as map keys.
type BondKey struct {
	A AtomID
	B AtomID
}

// NewBondKey creates a normalized BondKey from two endpoints
func NewBondKey(a, b AtomID) BondKey {
	if b < a {
		a, b = b, a
	}
	return BondKey{A: a, B: b}
}

// Contains reports whether id is one of the key's endpoints
func (k BondKey) Contains(id AtomID) bool {
	return k.A == id || k.B == id
}

// Other returns the endpoint opposite to id, and whether id is an endpoint
func (k BondKey) Other(id AtomID) (AtomID, bool) {
	switch id {
	case k.A:
		return k.B, true
	case k.B:
		return k.A, true
	default:
		return 0, false
	}
}

// String returns the canonical "a-b" representation
func (k BondKey) String() string {
	return fmt.Sprintf("%d-%d", k.A, k.B)
}
