package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

func atom(id valueobjects.AtomID, element string) Atom {
	return Atom{ID: id, Element: element}
}

func bond(a, b valueobjects.AtomID, order float64) Bond {
	return Bond{Key: valueobjects.NewBondKey(a, b), Order: order}
}

func TestNewStructure(t *testing.T) {
	s, err := NewStructure(
		[]Atom{atom(1, "C"), atom(2, "O"), atom(3, "H")},
		[]Bond{bond(1, 2, 2), bond(1, 3, 1)},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, s.AtomCount())
	assert.Equal(t, 2, s.BondCount())
	assert.Equal(t, 2, s.Degree(1))
	assert.Equal(t, 1, s.Degree(2))
	assert.Equal(t, []valueobjects.AtomID{2, 3}, s.Neighbors(1))

	b, ok := s.Bond(valueobjects.NewBondKey(2, 1))
	require.True(t, ok)
	assert.Equal(t, 2.0, b.Order)
}

func TestNewStructureRejectsDuplicateAtom(t *testing.T) {
	_, err := NewStructure([]Atom{atom(1, "C"), atom(1, "O")}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIntegrity(err))
}

func TestNewStructureRejectsEmptyElement(t *testing.T) {
	_, err := NewStructure([]Atom{atom(1, "")}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIntegrity(err))
}

func TestNewStructureRejectsSelfBond(t *testing.T) {
	_, err := NewStructure([]Atom{atom(1, "C")}, []Bond{bond(1, 1, 1)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIntegrity(err))
}

func TestNewStructureRejectsDanglingBond(t *testing.T) {
	_, err := NewStructure([]Atom{atom(1, "C")}, []Bond{bond(1, 9, 1)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIntegrity(err))
}

func TestNewStructureRejectsDuplicateBond(t *testing.T) {
	// The same pair in either endpoint order is one bond.
	_, err := NewStructure(
		[]Atom{atom(1, "C"), atom(2, "C")},
		[]Bond{bond(1, 2, 1), bond(2, 1, 2)},
	)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIntegrity(err))
}

func TestStructureJSONRoundTrip(t *testing.T) {
	s, err := NewStructure(
		[]Atom{
			{ID: 1, Element: "C", Position: valueobjects.NewPosition(1, 2, 3)},
			{ID: 2, Element: "N", Charge: -1},
		},
		[]Bond{bond(1, 2, 3)},
	)
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded Structure
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, s.Equal(&decoded))
}

func TestStructureUnmarshalValidates(t *testing.T) {
	payload := `{"atoms":[{"id":1,"element":"C"}],"bonds":[{"a":1,"b":2,"order":1}]}`
	var decoded Structure
	err := json.Unmarshal([]byte(payload), &decoded)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsIntegrity(err))
}

func TestMaxAtomID(t *testing.T) {
	s, err := NewStructure([]Atom{atom(7, "C"), atom(3, "O")}, nil)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.AtomID(7), s.MaxAtomID())
	assert.Equal(t, valueobjects.AtomID(0), EmptyStructure().MaxAtomID())
}
