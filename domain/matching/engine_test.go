package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

func newStructure(t *testing.T, atoms []entities.Atom, bonds []entities.Bond) *entities.Structure {
	t.Helper()
	s, err := entities.NewStructure(atoms, bonds)
	require.NoError(t, err)
	return s
}

func carbon(id valueobjects.AtomID) entities.Atom {
	return entities.Atom{ID: id, Element: "C"}
}

func single(a, b valueobjects.AtomID) entities.Bond {
	return entities.Bond{Key: valueobjects.NewBondKey(a, b), Order: 1}
}

func newTestEngine(budget, parallelism int) *Engine {
	return NewEngine(Config{Budget: budget, Parallelism: parallelism}, nil)
}

func TestMatchEmptyPattern(t *testing.T) {
	engine := newTestEngine(0, 1)
	target := newStructure(t, []entities.Atom{carbon(1)}, nil)

	mapping, err := engine.Match(context.Background(), entities.EmptyStructure(), target, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, mapping.Len())
}

func TestMatchPlantedPattern(t *testing.T) {
	engine := newTestEngine(0, 1)

	// Pattern: O double-bonded to C.
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), {ID: 2, Element: "O"}},
		[]entities.Bond{{Key: valueobjects.NewBondKey(1, 2), Order: 2}},
	)
	// Target: ethanal-like chain C(1)-C(2)=O(3) with hydrogens elided.
	target := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2), {ID: 3, Element: "O"}},
		[]entities.Bond{single(1, 2), {Key: valueobjects.NewBondKey(2, 3), Order: 2}},
	)

	mapping, err := engine.Match(context.Background(), pattern, target, nil)
	require.NoError(t, err)

	c, ok := mapping.Target(1)
	require.True(t, ok)
	o, ok := mapping.Target(2)
	require.True(t, ok)
	assert.Equal(t, valueobjects.AtomID(2), c)
	assert.Equal(t, valueobjects.AtomID(3), o)
}

func TestMatchNoMatchOnElement(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t, []entities.Atom{{ID: 1, Element: "N"}}, nil)
	target := newStructure(t, []entities.Atom{carbon(1), carbon(2)}, nil)

	_, err := engine.Match(context.Background(), pattern, target, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNoMatch(err))
}

func TestMatchNoMatchOnBondOrder(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2)},
		[]entities.Bond{{Key: valueobjects.NewBondKey(1, 2), Order: 2}},
	)
	target := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2)},
		[]entities.Bond{single(1, 2)},
	)

	_, err := engine.Match(context.Background(), pattern, target, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNoMatch(err))
}

func TestMatchNoMatchWhenPatternLarger(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t, []entities.Atom{carbon(1), carbon(2)}, nil)
	target := newStructure(t, []entities.Atom{carbon(1)}, nil)

	_, err := engine.Match(context.Background(), pattern, target, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNoMatch(err))
}

func TestMatchDeterministicAcrossParallelism(t *testing.T) {
	pattern := newStructure(t, []entities.Atom{{ID: 1, Element: "O"}}, nil)
	target := newStructure(t, []entities.Atom{
		carbon(1), {ID: 2, Element: "O"}, {ID: 3, Element: "O"}, {ID: 4, Element: "O"},
	}, nil)

	for _, parallelism := range []int{1, 4} {
		engine := newTestEngine(0, parallelism)
		for i := 0; i < 20; i++ {
			mapping, err := engine.Match(context.Background(), pattern, target, nil)
			require.NoError(t, err)
			got, ok := mapping.Target(1)
			require.True(t, ok)
			// The lowest-identifier candidate is canonical regardless of
			// which branch finished first.
			assert.Equal(t, valueobjects.AtomID(2), got)
		}
	}
}

func TestMatchPicksLexicographicallySmallestMapping(t *testing.T) {
	engine := newTestEngine(0, 1)

	// Pattern: C(1)-C(2)-O(3); atom 2 is the most constrained and anchors the
	// search, so branch order alone would favor the lower-identifier anchor.
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2), {ID: 3, Element: "O"}},
		[]entities.Bond{single(1, 2), single(2, 3)},
	)
	// Two disjoint embeddings. Anchoring at target 10 maps pattern atom 1 to
	// target 11; anchoring at target 20 maps it to target 1, which compares
	// smaller, so the second embedding is canonical.
	target := newStructure(t,
		[]entities.Atom{
			carbon(1), {ID: 2, Element: "O"},
			carbon(10), carbon(11), {ID: 12, Element: "O"},
			carbon(20),
		},
		[]entities.Bond{single(10, 11), single(10, 12), single(1, 20), single(2, 20)},
	)

	mapping, err := engine.Match(context.Background(), pattern, target, nil)
	require.NoError(t, err)

	want := map[valueobjects.AtomID]valueobjects.AtomID{1: 1, 2: 20, 3: 2}
	for patternID, wantTarget := range want {
		got, ok := mapping.Target(patternID)
		require.True(t, ok)
		assert.Equal(t, wantTarget, got)
	}
}

func TestMatchBudgetExhaustion(t *testing.T) {
	engine := newTestEngine(1, 1)
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2), carbon(3)},
		[]entities.Bond{single(1, 2), single(2, 3)},
	)
	target := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2), carbon(3), carbon(4)},
		[]entities.Bond{single(1, 2), single(2, 3), single(3, 4)},
	)

	_, err := engine.Match(context.Background(), pattern, target, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsMatchTimeout(err))
}

func TestSetBudgetRetunesLiveEngine(t *testing.T) {
	engine := newTestEngine(1, 1)
	engine.SetBudget(100000)
	assert.Equal(t, 100000, engine.Budget())

	pattern := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2)},
		[]entities.Bond{single(1, 2)},
	)
	target := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2), carbon(3)},
		[]entities.Bond{single(1, 2), single(2, 3)},
	)
	_, err := engine.Match(context.Background(), pattern, target, nil)
	require.NoError(t, err)
}

func TestMatchMergeHintAbsorbsNeighbors(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t, []entities.Atom{carbon(1)}, nil)
	// Chain of three carbons; the merge-hinted pattern atom absorbs all of it.
	target := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2), carbon(3)},
		[]entities.Bond{single(1, 2), single(2, 3)},
	)

	mapping, err := engine.Match(context.Background(), pattern, target,
		[]layers.GroupHint{{PatternID: 1, Kind: layers.HintMerge}})
	require.NoError(t, err)

	targets := mapping.Targets(1)
	assert.Equal(t, []valueobjects.AtomID{1, 2, 3}, targets)
}

func TestMatchMergeHintRespectsElement(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t, []entities.Atom{carbon(1)}, nil)
	target := newStructure(t,
		[]entities.Atom{carbon(1), {ID: 2, Element: "O"}},
		[]entities.Bond{single(1, 2)},
	)

	mapping, err := engine.Match(context.Background(), pattern, target,
		[]layers.GroupHint{{PatternID: 1, Kind: layers.HintMerge}})
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.AtomID{1}, mapping.Targets(1))
}

func TestMatchSplitHintSharesTarget(t *testing.T) {
	engine := newTestEngine(0, 1)
	// Two labeled hydrogens bonded to one carbon may land on the same
	// target hydrogen.
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), {ID: 2, Element: "H"}, {ID: 3, Element: "H"}},
		[]entities.Bond{single(1, 2), single(1, 3)},
	)
	target := newStructure(t,
		[]entities.Atom{carbon(1), {ID: 2, Element: "H"}},
		[]entities.Bond{single(1, 2)},
	)

	hints := []layers.GroupHint{
		{PatternID: 2, Kind: layers.HintSplit, Label: "h"},
		{PatternID: 3, Kind: layers.HintSplit, Label: "h"},
	}
	mapping, err := engine.Match(context.Background(), pattern, target, hints)
	require.NoError(t, err)

	a, _ := mapping.Target(2)
	b, _ := mapping.Target(3)
	assert.Equal(t, valueobjects.AtomID(2), a)
	assert.Equal(t, valueobjects.AtomID(2), b)
}

func TestMatchSplitRequiresSharedLabel(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), {ID: 2, Element: "H"}, {ID: 3, Element: "H"}},
		[]entities.Bond{single(1, 2), single(1, 3)},
	)
	target := newStructure(t,
		[]entities.Atom{carbon(1), {ID: 2, Element: "H"}},
		[]entities.Bond{single(1, 2)},
	)

	// Different labels: no sharing, so the second hydrogen has nowhere to go.
	hints := []layers.GroupHint{
		{PatternID: 2, Kind: layers.HintSplit, Label: "a"},
		{PatternID: 3, Kind: layers.HintSplit, Label: "b"},
	}
	_, err := engine.Match(context.Background(), pattern, target, hints)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNoMatch(err))
}

func TestMatchCancelledContext(t *testing.T) {
	engine := newTestEngine(0, 1)
	pattern := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2)},
		[]entities.Bond{single(1, 2)},
	)
	target := newStructure(t,
		[]entities.Atom{carbon(1), carbon(2)},
		[]entities.Bond{single(1, 2)},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Match(ctx, pattern, target, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
