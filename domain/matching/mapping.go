package matching

import (
	"sort"

	"molstack/domain/core/valueobjects"
)

// Mapping is a correspondence from pattern-local atom identifiers to target
// atom identifiers. In pair mode every pattern atom maps to exactly one
// target atom and no target is shared. Group hints relax this: a merge-hinted
// pattern atom may own several targets, and split-hinted pattern atoms
// sharing a label may own the same target.
//
// Mappings are computed fresh per resolution pass and never persisted.
type Mapping struct {
	forward map[valueobjects.AtomID][]valueobjects.AtomID
	reverse map[valueobjects.AtomID]valueobjects.AtomID
}

// NewMapping creates an empty mapping
func NewMapping() *Mapping {
	return &Mapping{
		forward: make(map[valueobjects.AtomID][]valueobjects.AtomID),
		reverse: make(map[valueobjects.AtomID]valueobjects.AtomID),
	}
}

// Target returns the primary target of a pattern atom
func (m *Mapping) Target(pattern valueobjects.AtomID) (valueobjects.AtomID, bool) {
	targets := m.forward[pattern]
	if len(targets) == 0 {
		return 0, false
	}
	return targets[0], true
}

// Targets returns every target mapped to a pattern atom, primary first
func (m *Mapping) Targets(pattern valueobjects.AtomID) []valueobjects.AtomID {
	targets := m.forward[pattern]
	out := make([]valueobjects.AtomID, len(targets))
	copy(out, targets)
	return out
}

// Pattern returns the pattern atom owning a target atom
func (m *Mapping) Pattern(target valueobjects.AtomID) (valueobjects.AtomID, bool) {
	pattern, ok := m.reverse[target]
	return pattern, ok
}

// HasTarget reports whether a target atom is already claimed
func (m *Mapping) HasTarget(target valueobjects.AtomID) bool {
	_, ok := m.reverse[target]
	return ok
}

// Len returns the number of mapped pattern atoms
func (m *Mapping) Len() int {
	return len(m.forward)
}

// PatternIDs returns the mapped pattern atoms in ascending order
func (m *Mapping) PatternIDs() []valueobjects.AtomID {
	out := make([]valueobjects.AtomID, 0, len(m.forward))
	for id := range m.forward {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Mapping) assign(pattern, target valueobjects.AtomID) {
	m.forward[pattern] = append(m.forward[pattern], target)
	m.reverse[target] = pattern
}

func (m *Mapping) unassign(pattern, target valueobjects.AtomID) {
	targets := m.forward[pattern]
	for i, t := range targets {
		if t == target {
			m.forward[pattern] = append(targets[:i], targets[i+1:]...)
			break
		}
	}
	if len(m.forward[pattern]) == 0 {
		delete(m.forward, pattern)
	}
	// A split-shared target stays claimed by the surviving pattern atom.
	if owner, ok := m.reverse[target]; ok && owner == pattern {
		delete(m.reverse, target)
		for p, targets := range m.forward {
			for _, t := range targets {
				if t == target {
					m.reverse[target] = p
				}
			}
		}
	}
}

func (m *Mapping) clone() *Mapping {
	out := NewMapping()
	for pattern, targets := range m.forward {
		copied := make([]valueobjects.AtomID, len(targets))
		copy(copied, targets)
		out.forward[pattern] = copied
	}
	for target, pattern := range m.reverse {
		out.reverse[target] = pattern
	}
	return out
}
