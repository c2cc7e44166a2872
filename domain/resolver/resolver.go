// Package resolver folds a document's layer stack bottom-up into resolved
// structures, anchoring each rule layer through the correspondence engine and
// memoizing one structure per depth.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"molstack/domain/core/aggregates"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	"molstack/domain/matching"
	pkgerrors "molstack/pkg/errors"
)

// MetricsRecorder receives resolution statistics. A nil recorder disables
// recording.
type MetricsRecorder interface {
	ObserveResolution(outcome string, foldedDepths int, duration time.Duration)
}

// Resolver computes the structure at a stack depth from a document snapshot.
// It never touches the document itself: the caller commits the returned
// ResolutionResult, which the aggregate rejects if a mutation intervened.
type Resolver struct {
	engine  *matching.Engine
	logger  *zap.Logger
	metrics MetricsRecorder
}

// NewResolver creates a resolver
func NewResolver(engine *matching.Engine, logger *zap.Logger, metrics MetricsRecorder) *Resolver {
	return &Resolver{engine: engine, logger: logger, metrics: metrics}
}

// Resolve folds the snapshot up to and including depth. It reuses the deepest
// valid cached structure below depth and only folds the stale suffix. The
// fold is an explicit iteration with an accumulator, so stack depth never
// translates into call depth.
func (r *Resolver) Resolve(ctx context.Context, snap aggregates.Snapshot, depth int) (*entities.Structure, aggregates.ResolutionResult, error) {
	start := time.Now()
	result := aggregates.ResolutionResult{
		BaseVersion: snap.Version,
		Entries:     make(map[int]aggregates.ResolvedEntry),
		NextAtomID:  snap.NextAtomID,
		Allocations: snap.Allocations,
	}

	if depth < 0 || depth >= len(snap.Layers) {
		return nil, result, pkgerrors.NewNotFoundError(fmt.Sprintf("layer index %d", depth))
	}

	// Valid cache hit at the requested depth: nothing to fold.
	if entry := snap.Entries[depth]; entry.State == aggregates.CacheCached {
		r.observe("cache_hit", 0, start)
		return entry.Structure, result, nil
	}

	current := entities.EmptyStructure()
	from := 0
	for i := depth; i >= 0; i-- {
		if snap.Entries[i].State == aggregates.CacheCached {
			current = snap.Entries[i].Structure
			from = i + 1
			break
		}
	}

	// A failed depth below the target fails again unchanged: the cache entry
	// is only still Failed because no lower layer mutated since.
	for i := from; i <= depth; i++ {
		if snap.Entries[i].State == aggregates.CacheFailed {
			r.observe("cached_failure", 0, start)
			return nil, result, snap.Entries[i].Err
		}
	}

	for i := from; i <= depth; i++ {
		layer := snap.Layers[i]

		if base, ok := layer.Base(); ok {
			current = base
			// Fresh identifiers must clear every identifier the base uses.
			if max := base.MaxAtomID(); result.NextAtomID <= max {
				result.NextAtomID = max + 1
			}
			result.Entries[i] = aggregates.ResolvedEntry{Structure: current}
			continue
		}

		rule, _ := layer.Rule()
		mapping, err := r.engine.Match(ctx, rule.Pattern(), current, rule.Hints())
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation drops the pass without recording a failure.
				return nil, result, err
			}
			unresolved := pkgerrors.NewUnresolvedRuleError(i, err)
			result.Entries[i] = aggregates.ResolvedEntry{Err: unresolved}
			r.logger.Warn("Rule layer could not be anchored",
				zap.String("document_id", snap.DocumentID.String()),
				zap.Int("depth", i),
				zap.Error(err),
			)
			r.observe("unresolved", i-from+1, start)
			return nil, result, unresolved
		}

		next, err := r.applyScript(layer.ID().String(), rule, mapping, current, &result)
		if err != nil {
			failure := pkgerrors.NewUnresolvedRuleError(i, err)
			result.Entries[i] = aggregates.ResolvedEntry{Err: failure}
			r.logger.Warn("Rule layer edit script failed",
				zap.String("document_id", snap.DocumentID.String()),
				zap.Int("depth", i),
				zap.Error(err),
			)
			r.observe("integrity_failure", i-from+1, start)
			return nil, result, failure
		}

		current = next
		result.Entries[i] = aggregates.ResolvedEntry{Structure: current}
	}

	r.observe("resolved", depth-from+1, start)
	return current, result, nil
}

func (r *Resolver) observe(outcome string, foldedDepths int, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveResolution(outcome, foldedDepths, time.Since(start))
	}
}

// applyScript applies a rule's edit script at the located placement,
// substituting pattern-local identifiers with their mapped targets and
// allocating deterministic fresh identifiers for added atoms. The result is
// re-validated through the Structure constructor.
func (r *Resolver) applyScript(layerID string, rule *layers.Rule, mapping *matching.Mapping, current *entities.Structure, result *aggregates.ResolutionResult) (*entities.Structure, error) {
	atoms := make(map[valueobjects.AtomID]entities.Atom, current.AtomCount())
	for _, atom := range current.Atoms() {
		atoms[atom.ID] = atom
	}
	bonds := make(map[valueobjects.BondKey]entities.Bond, current.BondCount())
	for _, bond := range current.Bonds() {
		bonds[bond.Key] = bond
	}

	allocated := result.Allocations[layerID]

	// resolve maps a pattern-local identifier to its primary global identifier.
	resolve := func(local valueobjects.AtomID) (valueobjects.AtomID, bool) {
		if global, ok := allocated[local]; ok {
			return global, true
		}
		return mapping.Target(local)
	}

	// group returns every global identifier a pattern-local one stands for.
	group := func(local valueobjects.AtomID) []valueobjects.AtomID {
		if global, ok := allocated[local]; ok {
			return []valueobjects.AtomID{global}
		}
		return mapping.Targets(local)
	}

	for _, op := range rule.Script() {
		switch op.Kind {
		case layers.OpAddAtom:
			global, recorded := allocated[op.AtomID]
			if recorded {
				// A mutation below this layer may have introduced the recorded
				// identifier since it was minted. Non-collision wins over
				// reuse; the allocation record follows the fresh identifier.
				if _, taken := atoms[global]; taken {
					recorded = false
				}
			}
			if !recorded {
				for {
					global = result.NextAtomID
					result.NextAtomID++
					if _, taken := atoms[global]; !taken {
						break
					}
				}
				if allocated == nil {
					allocated = make(map[valueobjects.AtomID]valueobjects.AtomID)
					if result.Allocations == nil {
						result.Allocations = make(map[string]map[valueobjects.AtomID]valueobjects.AtomID)
					}
					result.Allocations[layerID] = allocated
				}
				allocated[op.AtomID] = global
			}
			atom := entities.Atom{ID: global, Element: op.Element}
			if op.Position != nil {
				atom.Position = *op.Position
			}
			if op.Charge != nil {
				atom.Charge = *op.Charge
			}
			atoms[global] = atom

		case layers.OpRemoveAtom:
			// Removing a pattern atom removes its whole correspondence
			// group and every bond incident to a removed atom.
			removed := make(map[valueobjects.AtomID]bool)
			for _, global := range group(op.AtomID) {
				delete(atoms, global)
				removed[global] = true
			}
			for key := range bonds {
				if removed[key.A] || removed[key.B] {
					delete(bonds, key)
				}
			}
			if allocated != nil {
				delete(allocated, op.AtomID)
			}

		case layers.OpModifyAtom:
			for _, global := range group(op.AtomID) {
				atom, ok := atoms[global]
				if !ok {
					return nil, pkgerrors.NewIntegrityError(
						fmt.Sprintf("modify-atom targets missing atom %s", global))
				}
				if op.Element != "" {
					atom.Element = op.Element
				}
				if op.Position != nil {
					atom.Position = *op.Position
				}
				if op.Charge != nil {
					atom.Charge = *op.Charge
				}
				atoms[global] = atom
			}

		case layers.OpAddBond:
			a, okA := resolve(op.AtomID)
			b, okB := resolve(op.Other)
			if !okA || !okB {
				return nil, pkgerrors.NewIntegrityError("add-bond references an unmapped identifier")
			}
			key := valueobjects.NewBondKey(a, b)
			if _, exists := bonds[key]; exists {
				return nil, pkgerrors.NewIntegrityError(fmt.Sprintf("add-bond would duplicate bond %s", key))
			}
			bonds[key] = entities.Bond{Key: key, Order: op.Order}

		case layers.OpRemoveBond:
			a, okA := resolve(op.AtomID)
			b, okB := resolve(op.Other)
			if !okA || !okB {
				return nil, pkgerrors.NewIntegrityError("remove-bond references an unmapped identifier")
			}
			key := valueobjects.NewBondKey(a, b)
			if _, exists := bonds[key]; !exists {
				return nil, pkgerrors.NewIntegrityError(fmt.Sprintf("remove-bond targets missing bond %s", key))
			}
			delete(bonds, key)

		case layers.OpModifyBond:
			a, okA := resolve(op.AtomID)
			b, okB := resolve(op.Other)
			if !okA || !okB {
				return nil, pkgerrors.NewIntegrityError("modify-bond references an unmapped identifier")
			}
			key := valueobjects.NewBondKey(a, b)
			bond, exists := bonds[key]
			if !exists {
				return nil, pkgerrors.NewIntegrityError(fmt.Sprintf("modify-bond targets missing bond %s", key))
			}
			bond.Order = op.Order
			bonds[key] = bond
		}
	}

	atomList := make([]entities.Atom, 0, len(atoms))
	for _, atom := range atoms {
		atomList = append(atomList, atom)
	}
	bondList := make([]entities.Bond, 0, len(bonds))
	for _, bond := range bonds {
		bondList = append(bondList, bond)
	}
	return entities.NewStructure(atomList, bondList)
}
