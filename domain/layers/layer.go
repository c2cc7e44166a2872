// Package layers defines the closed layer variant a document stack is built
// from: a Base layer carrying a complete structure snapshot, or a Rule layer
// carrying a localized edit anchored by correspondence matching.
package layers

import (
	"encoding/json"
	"fmt"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// Kind tags the layer variant
type Kind string

const (
	KindBase Kind = "base"
	KindRule Kind = "rule"
)

// Layer is one entry of a document's stack. The variant is closed: resolution
// logic handles exactly the Base and Rule cases.
type Layer struct {
	id   valueobjects.LayerID
	kind Kind
	base *entities.Structure
	rule *Rule
}

// NewBaseLayer creates a layer carrying a complete structure snapshot that
// replaces anything below it.
func NewBaseLayer(structure *entities.Structure) *Layer {
	if structure == nil {
		structure = entities.EmptyStructure()
	}
	return &Layer{
		id:   valueobjects.NewLayerID(),
		kind: KindBase,
		base: structure,
	}
}

// NewRuleLayer creates a layer carrying a localized rule. The rule's edit
// script is validated at construction; a malformed script never enters a stack.
func NewRuleLayer(pattern *entities.Structure, script []EditOp, hints []GroupHint) (*Layer, error) {
	rule, err := NewRule(pattern, script, hints)
	if err != nil {
		return nil, err
	}
	return &Layer{
		id:   valueobjects.NewLayerID(),
		kind: KindRule,
		rule: rule,
	}, nil
}

// ID returns the layer's stable identifier
func (l *Layer) ID() valueobjects.LayerID {
	return l.id
}

// Kind returns the layer variant tag
func (l *Layer) Kind() Kind {
	return l.kind
}

// Base returns the snapshot structure of a base layer
func (l *Layer) Base() (*entities.Structure, bool) {
	if l.kind != KindBase {
		return nil, false
	}
	return l.base, true
}

// Rule returns the rule of a rule layer
func (l *Layer) Rule() (*Rule, bool) {
	if l.kind != KindRule {
		return nil, false
	}
	return l.rule, true
}

// Summary describes a layer for listing without exposing its full payload
type Summary struct {
	Index        int                  `json:"index"`
	ID           valueobjects.LayerID `json:"id"`
	Kind         Kind                 `json:"kind"`
	AtomCount    int                  `json:"atom_count,omitempty"`
	BondCount    int                  `json:"bond_count,omitempty"`
	PatternAtoms int                  `json:"pattern_atoms,omitempty"`
	Operations   int                  `json:"operations,omitempty"`
}

// Summarize builds the listing record for the layer at the given stack index
func (l *Layer) Summarize(index int) Summary {
	summary := Summary{Index: index, ID: l.id, Kind: l.kind}
	switch l.kind {
	case KindBase:
		summary.AtomCount = l.base.AtomCount()
		summary.BondCount = l.base.BondCount()
	case KindRule:
		summary.PatternAtoms = l.rule.Pattern().AtomCount()
		summary.Operations = len(l.rule.script)
	}
	return summary
}

// layerJSON is the wire form of a layer. Round-tripping preserves the layer
// identifier so exported documents re-import with stable IDs.
type layerJSON struct {
	ID      valueobjects.LayerID `json:"id"`
	Kind    Kind                 `json:"kind"`
	Base    *entities.Structure  `json:"structure,omitempty"`
	Pattern *entities.Structure  `json:"pattern,omitempty"`
	Script  []EditOp             `json:"script,omitempty"`
	Hints   []GroupHint          `json:"hints,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (l *Layer) MarshalJSON() ([]byte, error) {
	record := layerJSON{ID: l.id, Kind: l.kind}
	switch l.kind {
	case KindBase:
		record.Base = l.base
	case KindRule:
		record.Pattern = l.rule.pattern
		record.Script = l.rule.script
		record.Hints = l.rule.hints
	}
	return json.Marshal(record)
}

// UnmarshalJSON implements json.Unmarshaler, re-running construction-time
// validation so a malformed serialized rule is rejected the same way.
func (l *Layer) UnmarshalJSON(data []byte) error {
	var record layerJSON
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	id := record.ID
	if id.IsZero() {
		id = valueobjects.NewLayerID()
	}

	switch record.Kind {
	case KindBase:
		base := record.Base
		if base == nil {
			base = entities.EmptyStructure()
		}
		*l = Layer{id: id, kind: KindBase, base: base}
		return nil
	case KindRule:
		rule, err := NewRule(record.Pattern, record.Script, record.Hints)
		if err != nil {
			return err
		}
		*l = Layer{id: id, kind: KindRule, rule: rule}
		return nil
	default:
		return pkgerrors.NewMalformedRuleError(fmt.Sprintf("unknown layer kind %q", record.Kind))
	}
}
