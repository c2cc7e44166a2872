// Package matching implements the correspondence engine that anchors a rule
// layer's local pattern inside the structure produced beneath it.
//
// The search is a most-constrained-first backtracking over candidate atom
// assignments, scoped to the small labeled sparse graphs typical of
// molecules. It is deterministic: pattern atoms are visited in descending
// degree (identifier ascending on ties), target candidates in ascending
// identifier order, and when several root branches complete, the mapping
// with the lexicographically smallest pattern-to-target ordering wins, so
// ties never surface to callers. A node-expansion budget bounds pathological
// searches.
package matching

import (
	"context"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

// DefaultBudget is the node-expansion budget applied when none is configured
const DefaultBudget = 100000

// MetricsRecorder receives search statistics. Implementations must be safe
// for concurrent use; a nil recorder disables recording.
type MetricsRecorder interface {
	ObserveMatch(outcome string, expansions int)
}

// Config tunes the engine
type Config struct {
	// Budget is the node-expansion budget per root-candidate branch.
	Budget int

	// Parallelism caps concurrent root-candidate branches.
	Parallelism int
}

// Engine computes correspondence mappings between pattern and target
// structures. Safe for concurrent use; the budget may be retuned at runtime.
type Engine struct {
	budget      atomic.Int64
	parallelism int
	metrics     MetricsRecorder
}

// NewEngine creates a matching engine
func NewEngine(cfg Config, metrics MetricsRecorder) *Engine {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	e := &Engine{parallelism: cfg.Parallelism, metrics: metrics}
	e.budget.Store(int64(cfg.Budget))
	return e
}

// SetBudget retunes the node-expansion budget of a live engine
func (e *Engine) SetBudget(budget int) {
	if budget > 0 {
		e.budget.Store(int64(budget))
	}
}

// Budget returns the current node-expansion budget
func (e *Engine) Budget() int {
	return int(e.budget.Load())
}

// Match finds a correspondence mapping placing pattern inside target, honoring
// the declared merge/split hints. It returns a NoMatch error when no complete
// mapping exists and a MatchTimeout error when the expansion budget runs out.
func (e *Engine) Match(ctx context.Context, pattern, target *entities.Structure, hints []layers.GroupHint) (*Mapping, error) {
	order := searchOrder(pattern)
	if len(order) == 0 {
		e.observe("match", 0)
		return NewMapping(), nil
	}

	mergeHints := make(map[valueobjects.AtomID]bool)
	splitLabels := make(map[valueobjects.AtomID]string)
	for _, hint := range hints {
		switch hint.Kind {
		case layers.HintMerge:
			mergeHints[hint.PatternID] = true
		case layers.HintSplit:
			splitLabels[hint.PatternID] = hint.Label
		}
	}

	// Without split sharing a pattern larger than the target can never embed.
	if len(splitLabels) == 0 && pattern.AtomCount() > target.AtomCount() {
		e.observe("no_match", 0)
		return nil, pkgerrors.NewNoMatchError("pattern has more atoms than target")
	}

	budget := e.Budget()
	targetAtoms := target.Atoms()
	minDeg := minDegrees(pattern, splitLabels)
	roots := candidateTargets(pattern, target, targetAtoms, order[0], minDeg[order[0]])
	if len(roots) == 0 {
		e.observe("no_match", 0)
		return nil, pkgerrors.NewNoMatchError("no candidate target atom for the most constrained pattern atom")
	}

	// Fan each root-candidate branch out to a bounded worker group, then pick
	// the lexicographically smallest complete mapping so parallel evaluation
	// cannot perturb the canonical result.
	results := make([]*Mapping, len(roots))
	branchExpansions := make([]int, len(roots))
	branchTimedOut := make([]bool, len(roots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			s := &search{
				ctx:         gctx,
				pattern:     pattern,
				target:      target,
				targetAtoms: targetAtoms,
				order:       order,
				mapping:     NewMapping(),
				mergeHints:  mergeHints,
				splitLabels: splitLabels,
				minDegrees:  minDeg,
				budget:      budget,
			}
			s.mapping.assign(order[0], root)
			if s.extend(1) {
				results[i] = s.mapping
			}
			branchExpansions[i] = s.expansions
			branchTimedOut[i] = s.timedOut
			return s.ctxErr
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	timedOut := false
	for i := range roots {
		total += branchExpansions[i]
		timedOut = timedOut || branchTimedOut[i]
	}

	patternIDs := ascendingIDs(order)
	var best *Mapping
	for _, result := range results {
		if result == nil {
			continue
		}
		if best == nil || mappingBefore(result, best, patternIDs) {
			best = result
		}
	}
	if best != nil {
		groupMerges(best, pattern, target, mergeHints)
		e.observe("match", total)
		return best, nil
	}

	if timedOut {
		e.observe("timeout", total)
		return nil, pkgerrors.NewMatchTimeoutError(budget)
	}
	e.observe("no_match", total)
	return nil, pkgerrors.NewNoMatchError("no complete correspondence mapping exists")
}

func (e *Engine) observe(outcome string, expansions int) {
	if e.metrics != nil {
		e.metrics.ObserveMatch(outcome, expansions)
	}
}

// searchOrder returns pattern atoms most-constrained-first: descending degree,
// ascending identifier on ties.
func searchOrder(pattern *entities.Structure) []valueobjects.AtomID {
	atoms := pattern.Atoms()
	order := make([]valueobjects.AtomID, 0, len(atoms))
	for _, atom := range atoms {
		order = append(order, atom.ID)
	}
	sort.Slice(order, func(i, j int) bool {
		di, dj := pattern.Degree(order[i]), pattern.Degree(order[j])
		if di != dj {
			return di > dj
		}
		return order[i] < order[j]
	})
	return order
}

// candidateTargets filters target atoms compatible with a pattern atom:
// equal element, degree at least minDegree. Ascending identifier.
func candidateTargets(pattern, target *entities.Structure, targetAtoms []entities.Atom, patternID valueobjects.AtomID, minDegree int) []valueobjects.AtomID {
	patternAtom, _ := pattern.Atom(patternID)
	out := make([]valueobjects.AtomID, 0, len(targetAtoms))
	for _, candidate := range targetAtoms {
		if candidate.Element != patternAtom.Element {
			continue
		}
		if target.Degree(candidate.ID) < minDegree {
			continue
		}
		out = append(out, candidate.ID)
	}
	return out
}

// minDegrees returns the minimum target degree a candidate must carry, per
// pattern atom. Neighbors sharing a split label can collapse onto one target
// atom, so each distinct neighbor label counts once; a neighbor carrying the
// atom's own label may collapse onto the atom itself and counts zero.
func minDegrees(pattern *entities.Structure, splitLabels map[valueobjects.AtomID]string) map[valueobjects.AtomID]int {
	out := make(map[valueobjects.AtomID]int, pattern.AtomCount())
	for _, atom := range pattern.Atoms() {
		own := splitLabels[atom.ID]
		plain := 0
		labels := make(map[string]bool)
		for _, neighborID := range pattern.Neighbors(atom.ID) {
			label, labeled := splitLabels[neighborID]
			switch {
			case !labeled:
				plain++
			case label != own:
				labels[label] = true
			}
		}
		out[atom.ID] = plain + len(labels)
	}
	return out
}

// ascendingIDs returns the pattern identifiers in ascending order
func ascendingIDs(order []valueobjects.AtomID) []valueobjects.AtomID {
	ids := make([]valueobjects.AtomID, len(order))
	copy(ids, order)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// mappingBefore reports whether mapping a orders before mapping b when their
// target assignments are compared pattern identifier by pattern identifier,
// ascending. Both mappings must cover every identifier in patternIDs.
func mappingBefore(a, b *Mapping, patternIDs []valueobjects.AtomID) bool {
	for _, id := range patternIDs {
		at, bt := a.forward[id], b.forward[id]
		n := len(at)
		if len(bt) < n {
			n = len(bt)
		}
		for i := 0; i < n; i++ {
			if at[i] != bt[i] {
				return at[i] < bt[i]
			}
		}
		if len(at) != len(bt) {
			return len(at) < len(bt)
		}
	}
	return false
}

// search is the per-branch backtracking state
type search struct {
	ctx         context.Context
	pattern     *entities.Structure
	target      *entities.Structure
	targetAtoms []entities.Atom
	order       []valueobjects.AtomID
	mapping     *Mapping
	mergeHints  map[valueobjects.AtomID]bool
	splitLabels map[valueobjects.AtomID]string
	minDegrees  map[valueobjects.AtomID]int
	budget      int
	expansions  int
	timedOut    bool
	ctxErr      error
}

// extend assigns the pattern atom at position idx of the search order,
// recursing until all pattern atoms are placed.
func (s *search) extend(idx int) bool {
	if idx == len(s.order) {
		return true
	}
	patternID := s.order[idx]
	for _, targetID := range candidateTargets(s.pattern, s.target, s.targetAtoms, patternID, s.minDegrees[patternID]) {
		s.expansions++
		if s.expansions > s.budget {
			s.timedOut = true
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.ctxErr = err
			return false
		}
		if !s.claimable(patternID, targetID) {
			continue
		}
		if !s.bondsCompatible(patternID, targetID) {
			continue
		}
		s.mapping.assign(patternID, targetID)
		if s.extend(idx + 1) {
			return true
		}
		s.mapping.unassign(patternID, targetID)
		if s.timedOut || s.ctxErr != nil {
			return false
		}
	}
	return false
}

// claimable reports whether targetID may be assigned to patternID. A claimed
// target is only shareable between pattern atoms carrying the same split label.
func (s *search) claimable(patternID, targetID valueobjects.AtomID) bool {
	owner, claimed := s.mapping.Pattern(targetID)
	if !claimed {
		return true
	}
	label := s.splitLabels[patternID]
	return label != "" && s.splitLabels[owner] == label
}

// bondsCompatible checks every pattern bond from patternID to an
// already-assigned neighbor against the target. A bond between two split
// atoms sharing one target collapses and is trivially satisfied.
func (s *search) bondsCompatible(patternID, targetID valueobjects.AtomID) bool {
	for _, neighborID := range s.pattern.Neighbors(patternID) {
		neighborTarget, assigned := s.mapping.Target(neighborID)
		if !assigned {
			continue
		}
		if neighborTarget == targetID {
			continue
		}
		patternBond, _ := s.pattern.Bond(valueobjects.NewBondKey(patternID, neighborID))
		targetBond, ok := s.target.Bond(valueobjects.NewBondKey(targetID, neighborTarget))
		if !ok || targetBond.Order != patternBond.Order {
			return false
		}
	}
	return true
}

// groupMerges runs the greedy grouping pass: each merge-hinted pattern atom
// absorbs unclaimed target atoms of its own element adjacent to any atom it
// already owns. Pattern atoms and neighbor candidates are visited in
// ascending identifier order, keeping groupings deterministic.
func groupMerges(mapping *Mapping, pattern, target *entities.Structure, mergeHints map[valueobjects.AtomID]bool) {
	for _, patternID := range mapping.PatternIDs() {
		if !mergeHints[patternID] {
			continue
		}
		patternAtom, _ := pattern.Atom(patternID)
		frontier := mapping.Targets(patternID)
		for len(frontier) > 0 {
			current := frontier[0]
			frontier = frontier[1:]
			for _, neighborID := range target.Neighbors(current) {
				if mapping.HasTarget(neighborID) {
					continue
				}
				neighbor, _ := target.Atom(neighborID)
				if neighbor.Element != patternAtom.Element {
					continue
				}
				mapping.assign(patternID, neighborID)
				frontier = append(frontier, neighborID)
			}
		}
	}
}
