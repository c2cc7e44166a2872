package entities

import (
	"encoding/json"
	"fmt"
	"sort"

	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// Atom is one labeled point of a structure
type Atom struct {
	ID       valueobjects.AtomID
	Element  string
	Position valueobjects.Position
	Charge   int
}

// Bond is an unordered connection between two atoms with an order label
// (1 single, 1.5 aromatic, 2 double, 3 triple)
type Bond struct {
	Key   valueobjects.BondKey
	Order float64
}

// Structure is an immutable atom/bond graph snapshot. It is produced only by
// construction or resolution and never mutated in place; edits produce a new
// Structure value. Consumers share read-only access.
type Structure struct {
	atoms     map[valueobjects.AtomID]Atom
	bonds     map[valueobjects.BondKey]Bond
	adjacency map[valueobjects.AtomID][]valueobjects.AtomID
}

// NewStructure constructs a Structure, rejecting duplicate atom identifiers,
// duplicate bonds, self-bonds and bonds referencing missing atoms.
func NewStructure(atoms []Atom, bonds []Bond) (*Structure, error) {
	s := &Structure{
		atoms:     make(map[valueobjects.AtomID]Atom, len(atoms)),
		bonds:     make(map[valueobjects.BondKey]Bond, len(bonds)),
		adjacency: make(map[valueobjects.AtomID][]valueobjects.AtomID, len(atoms)),
	}

	for _, atom := range atoms {
		if _, exists := s.atoms[atom.ID]; exists {
			return nil, pkgerrors.NewIntegrityError(
				fmt.Sprintf("duplicate atom identifier %s", atom.ID))
		}
		if atom.Element == "" {
			return nil, pkgerrors.NewIntegrityError(
				fmt.Sprintf("atom %s has an empty element label", atom.ID))
		}
		s.atoms[atom.ID] = atom
	}

	for _, bond := range bonds {
		key := valueobjects.NewBondKey(bond.Key.A, bond.Key.B)
		if key.A == key.B {
			return nil, pkgerrors.NewIntegrityError(
				fmt.Sprintf("bond %s connects an atom to itself", key))
		}
		if _, ok := s.atoms[key.A]; !ok {
			return nil, pkgerrors.NewIntegrityError(
				fmt.Sprintf("bond %s references missing atom %s", key, key.A))
		}
		if _, ok := s.atoms[key.B]; !ok {
			return nil, pkgerrors.NewIntegrityError(
				fmt.Sprintf("bond %s references missing atom %s", key, key.B))
		}
		if _, exists := s.bonds[key]; exists {
			return nil, pkgerrors.NewIntegrityError(
				fmt.Sprintf("duplicate bond %s", key))
		}
		s.bonds[key] = Bond{Key: key, Order: bond.Order}
		s.adjacency[key.A] = append(s.adjacency[key.A], key.B)
		s.adjacency[key.B] = append(s.adjacency[key.B], key.A)
	}

	for id := range s.adjacency {
		neighbors := s.adjacency[id]
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
	}

	return s, nil
}

// EmptyStructure returns a structure with no atoms and no bonds
func EmptyStructure() *Structure {
	s, _ := NewStructure(nil, nil)
	return s
}

// Atom looks up an atom by identifier
func (s *Structure) Atom(id valueobjects.AtomID) (Atom, bool) {
	atom, ok := s.atoms[id]
	return atom, ok
}

// HasAtom reports whether the structure contains the given atom
func (s *Structure) HasAtom(id valueobjects.AtomID) bool {
	_, ok := s.atoms[id]
	return ok
}

// Bond looks up a bond by its normalized endpoint pair
func (s *Structure) Bond(key valueobjects.BondKey) (Bond, bool) {
	bond, ok := s.bonds[valueobjects.NewBondKey(key.A, key.B)]
	return bond, ok
}

// Neighbors returns the atoms bonded to id, in ascending identifier order
func (s *Structure) Neighbors(id valueobjects.AtomID) []valueobjects.AtomID {
	neighbors := s.adjacency[id]
	out := make([]valueobjects.AtomID, len(neighbors))
	copy(out, neighbors)
	return out
}

// Degree returns the number of bonds incident to id
func (s *Structure) Degree(id valueobjects.AtomID) int {
	return len(s.adjacency[id])
}

// Atoms returns all atoms in ascending identifier order
func (s *Structure) Atoms() []Atom {
	out := make([]Atom, 0, len(s.atoms))
	for _, atom := range s.atoms {
		out = append(out, atom)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Bonds returns all bonds in ascending key order
func (s *Structure) Bonds() []Bond {
	out := make([]Bond, 0, len(s.bonds))
	for _, bond := range s.bonds {
		out = append(out, bond)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.A != out[j].Key.A {
			return out[i].Key.A < out[j].Key.A
		}
		return out[i].Key.B < out[j].Key.B
	})
	return out
}

// AtomCount returns the number of atoms
func (s *Structure) AtomCount() int {
	return len(s.atoms)
}

// BondCount returns the number of bonds
func (s *Structure) BondCount() int {
	return len(s.bonds)
}

// MaxAtomID returns the largest atom identifier present, or zero when empty
func (s *Structure) MaxAtomID() valueobjects.AtomID {
	var max valueobjects.AtomID
	for id := range s.atoms {
		if id > max {
			max = id
		}
	}
	return max
}

// Equal reports structural equality: same atom set (including element,
// position and charge) and same bond set, independent of iteration order.
func (s *Structure) Equal(other *Structure) bool {
	if other == nil {
		return false
	}
	if len(s.atoms) != len(other.atoms) || len(s.bonds) != len(other.bonds) {
		return false
	}
	for id, atom := range s.atoms {
		otherAtom, ok := other.atoms[id]
		if !ok || atom != otherAtom {
			return false
		}
	}
	for key, bond := range s.bonds {
		otherBond, ok := other.bonds[key]
		if !ok || bond != otherBond {
			return false
		}
	}
	return true
}

// structureJSON is the wire form of a Structure: sorted atom and bond arrays
// so that serialization is deterministic.
type structureJSON struct {
	Atoms []atomJSON `json:"atoms"`
	Bonds []bondJSON `json:"bonds"`
}

type atomJSON struct {
	ID       valueobjects.AtomID   `json:"id"`
	Element  string                `json:"element"`
	Position valueobjects.Position `json:"position"`
	Charge   int                   `json:"charge,omitempty"`
}

type bondJSON struct {
	A     valueobjects.AtomID `json:"a"`
	B     valueobjects.AtomID `json:"b"`
	Order float64             `json:"order"`
}

// MarshalJSON implements json.Marshaler
func (s *Structure) MarshalJSON() ([]byte, error) {
	record := structureJSON{
		Atoms: make([]atomJSON, 0, len(s.atoms)),
		Bonds: make([]bondJSON, 0, len(s.bonds)),
	}
	for _, atom := range s.Atoms() {
		record.Atoms = append(record.Atoms, atomJSON{
			ID:       atom.ID,
			Element:  atom.Element,
			Position: atom.Position,
			Charge:   atom.Charge,
		})
	}
	for _, bond := range s.Bonds() {
		record.Bonds = append(record.Bonds, bondJSON{A: bond.Key.A, B: bond.Key.B, Order: bond.Order})
	}
	return json.Marshal(record)
}

// UnmarshalJSON implements json.Unmarshaler, re-running integrity validation
func (s *Structure) UnmarshalJSON(data []byte) error {
	var record structureJSON
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	atoms := make([]Atom, 0, len(record.Atoms))
	for _, a := range record.Atoms {
		atoms = append(atoms, Atom{ID: a.ID, Element: a.Element, Position: a.Position, Charge: a.Charge})
	}
	bonds := make([]Bond, 0, len(record.Bonds))
	for _, b := range record.Bonds {
		bonds = append(bonds, Bond{Key: valueobjects.NewBondKey(b.A, b.B), Order: b.Order})
	}
	parsed, err := NewStructure(atoms, bonds)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
