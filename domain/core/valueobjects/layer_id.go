package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// LayerID is a value object identifying one layer within a document's stack.
// The ID survives reordering; it does not change when the layer moves.
type LayerID struct {
	value string
}

// NewLayerID creates a new random LayerID
func NewLayerID() LayerID {
	return LayerID{value: uuid.New().String()}
}

// NewLayerIDFromString creates a LayerID from an existing string
func NewLayerIDFromString(id string) (LayerID, error) {
	if id == "" {
		return LayerID{}, errors.New("layer ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return LayerID{}, errors.New("layer ID must be a valid UUID")
	}
	return LayerID{value: id}, nil
}

// String returns the string representation of the LayerID
func (id LayerID) String() string {
	return id.value
}

// Equals checks if two LayerIDs are equal
func (id LayerID) Equals(other LayerID) bool {
	return id.value == other.value
}

// IsZero checks if the LayerID is the zero value
func (id LayerID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id LayerID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *LayerID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("LayerID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
