package layers

import (
	"fmt"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// EditOpKind enumerates the operations an edit script may contain
type EditOpKind string

const (
	OpAddAtom    EditOpKind = "add-atom"
	OpRemoveAtom EditOpKind = "remove-atom"
	OpModifyAtom EditOpKind = "modify-atom"
	OpAddBond    EditOpKind = "add-bond"
	OpRemoveBond EditOpKind = "remove-bond"
	OpModifyBond EditOpKind = "modify-bond"
)

// EditOp is a single step of a rule's edit script. All identifiers are
// pattern-local: either atoms of the rule's own pattern or atoms introduced
// by a prior add-atom operation in the same script.
type EditOp struct {
	Kind EditOpKind `json:"op"`

	// AtomID is the primary operand. For add-atom it is the fresh
	// pattern-local identifier the rest of the script may reference.
	AtomID valueobjects.AtomID `json:"atom"`

	// Other is the second endpoint for bond operations.
	Other valueobjects.AtomID `json:"other,omitempty"`

	// Element applies to add-atom (required) and modify-atom (optional).
	Element string `json:"element,omitempty"`

	// Position applies to add-atom and modify-atom.
	Position *valueobjects.Position `json:"position,omitempty"`

	// Charge applies to add-atom and modify-atom.
	Charge *int `json:"charge,omitempty"`

	// Order applies to add-bond (required) and modify-bond (required).
	Order float64 `json:"order,omitempty"`
}

// HintKind enumerates the declared n-to-n eligibilities
type HintKind string

const (
	// HintMerge marks a pattern atom that may absorb several adjacent
	// target atoms of the same element into one correspondence group.
	HintMerge HintKind = "merge"

	// HintSplit marks a pattern atom that may share its target with other
	// pattern atoms carrying the same split label.
	HintSplit HintKind = "split"
)

// GroupHint declares a pattern atom's merge/split eligibility. Groupings are
// only formed where a hint permits them; the matching engine never infers
// merges it was not told to consider.
type GroupHint struct {
	PatternID valueobjects.AtomID `json:"pattern_id"`
	Kind      HintKind            `json:"kind"`
	Label     string              `json:"label,omitempty"`
}

// Rule is a localized edit expressed relative to the structure produced by
// the layers below it: a local pattern to locate, an ordered edit script to
// apply at the located placement, and optional n-to-n group hints.
type Rule struct {
	pattern *entities.Structure
	script  []EditOp
	hints   []GroupHint
}

// NewRule validates and constructs a rule. Scripts referencing identifiers
// absent from the pattern (and not introduced by a prior add-atom) are
// rejected with a MalformedRule error.
func NewRule(pattern *entities.Structure, script []EditOp, hints []GroupHint) (*Rule, error) {
	if pattern == nil {
		pattern = entities.EmptyStructure()
	}

	if err := validateScript(pattern, script); err != nil {
		return nil, err
	}
	if err := validateHints(pattern, hints); err != nil {
		return nil, err
	}

	r := &Rule{
		pattern: pattern,
		script:  make([]EditOp, len(script)),
		hints:   make([]GroupHint, len(hints)),
	}
	copy(r.script, script)
	copy(r.hints, hints)
	return r, nil
}

// Pattern returns the local pattern structure the rule expects to find
func (r *Rule) Pattern() *entities.Structure {
	return r.pattern
}

// Script returns the ordered edit script
func (r *Rule) Script() []EditOp {
	out := make([]EditOp, len(r.script))
	copy(out, r.script)
	return out
}

// Hints returns the declared merge/split eligibilities
func (r *Rule) Hints() []GroupHint {
	out := make([]GroupHint, len(r.hints))
	copy(out, r.hints)
	return out
}

func validateScript(pattern *entities.Structure, script []EditOp) error {
	known := make(map[valueobjects.AtomID]bool)
	for _, atom := range pattern.Atoms() {
		known[atom.ID] = true
	}

	for i, op := range script {
		switch op.Kind {
		case OpAddAtom:
			if known[op.AtomID] {
				return malformed(i, fmt.Sprintf("add-atom reuses identifier %s", op.AtomID))
			}
			if op.Element == "" {
				return malformed(i, "add-atom requires an element label")
			}
			known[op.AtomID] = true

		case OpRemoveAtom:
			if !known[op.AtomID] {
				return malformed(i, fmt.Sprintf("remove-atom references unknown identifier %s", op.AtomID))
			}
			delete(known, op.AtomID)

		case OpModifyAtom:
			if !known[op.AtomID] {
				return malformed(i, fmt.Sprintf("modify-atom references unknown identifier %s", op.AtomID))
			}
			if op.Element == "" && op.Position == nil && op.Charge == nil {
				return malformed(i, "modify-atom changes nothing")
			}

		case OpAddBond, OpRemoveBond, OpModifyBond:
			if !known[op.AtomID] {
				return malformed(i, fmt.Sprintf("%s references unknown identifier %s", op.Kind, op.AtomID))
			}
			if !known[op.Other] {
				return malformed(i, fmt.Sprintf("%s references unknown identifier %s", op.Kind, op.Other))
			}
			if op.AtomID == op.Other {
				return malformed(i, fmt.Sprintf("%s connects an atom to itself", op.Kind))
			}
			if op.Kind != OpRemoveBond && op.Order <= 0 {
				return malformed(i, fmt.Sprintf("%s requires a positive bond order", op.Kind))
			}

		default:
			return malformed(i, fmt.Sprintf("unknown operation %q", op.Kind))
		}
	}
	return nil
}

func validateHints(pattern *entities.Structure, hints []GroupHint) error {
	for _, hint := range hints {
		if !pattern.HasAtom(hint.PatternID) {
			return pkgerrors.NewMalformedRuleError(
				fmt.Sprintf("group hint references identifier %s absent from the pattern", hint.PatternID))
		}
		switch hint.Kind {
		case HintMerge:
		case HintSplit:
			if hint.Label == "" {
				return pkgerrors.NewMalformedRuleError(
					fmt.Sprintf("split hint on %s requires a label", hint.PatternID))
			}
		default:
			return pkgerrors.NewMalformedRuleError(
				fmt.Sprintf("unknown group hint kind %q", hint.Kind))
		}
	}
	return nil
}

func malformed(index int, message string) error {
	return pkgerrors.NewMalformedRuleError(
		fmt.Sprintf("edit script operation %d: %s", index, message))
}
