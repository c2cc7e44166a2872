package aggregates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

func baseLayer(t *testing.T) *layers.Layer {
	t.Helper()
	base, err := entities.NewStructure(
		[]entities.Atom{{ID: 1, Element: "C"}, {ID: 2, Element: "O"}},
		[]entities.Bond{{Key: valueobjects.NewBondKey(1, 2), Order: 1}},
	)
	require.NoError(t, err)
	return layers.NewBaseLayer(base)
}

func simpleRuleLayer(t *testing.T) *layers.Layer {
	t.Helper()
	pattern, err := entities.NewStructure([]entities.Atom{{ID: 1, Element: "C"}}, nil)
	require.NoError(t, err)
	charge := 1
	layer, err := layers.NewRuleLayer(pattern, []layers.EditOp{
		{Kind: layers.OpModifyAtom, AtomID: 1, Charge: &charge},
	}, nil)
	require.NoError(t, err)
	return layer
}

func cachedResult(doc *Document, depths ...int) ResolutionResult {
	snap := doc.Snapshot()
	result := ResolutionResult{
		BaseVersion: snap.Version,
		Entries:     make(map[int]ResolvedEntry),
		NextAtomID:  snap.NextAtomID,
		Allocations: snap.Allocations,
	}
	for _, depth := range depths {
		result.Entries[depth] = ResolvedEntry{Structure: entities.EmptyStructure()}
	}
	return result
}

func TestPushBumpsVersionAndReturnsIndex(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, 1, doc.Version())
	assert.Equal(t, 0, doc.LayerCount())

	index, version, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, 2, version)

	index, version, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, 3, version)
	assert.Equal(t, 2, doc.LayerCount())
}

func TestDepthZeroMustBeBase(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(simpleRuleLayer(t))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, _, err = doc.Push(baseLayer(t))
	require.NoError(t, err)
	_, err = doc.Insert(0, simpleRuleLayer(t))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestRemoveKeepsBaseInvariant(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	// Removing the base would promote the rule layer to depth 0.
	_, err = doc.Remove(0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = doc.Remove(1)
	require.NoError(t, err)
	_, err = doc.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.LayerCount())
}

func TestRemoveRejectsUnknownIndex(t *testing.T) {
	doc := NewDocument()
	_, err := doc.Remove(0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMoveKeepsBaseInvariant(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	_, err = doc.Move(1, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, _, err = doc.Push(baseLayer(t))
	require.NoError(t, err)
	version, err := doc.Move(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.Equal(t, 3, doc.LayerCount())
}

func TestMutationInvalidatesCacheFromIndex(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	require.NoError(t, doc.CommitResolution(cachedResult(doc, 0, 1)))
	assert.Equal(t, 1, doc.DeepestCachedDepth())

	// Pushing on top leaves the existing depths valid.
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.DeepestCachedDepth())
	_, ok := doc.CachedStructure(1)
	assert.True(t, ok)

	// Inserting at depth 1 invalidates everything at or above it.
	_, err = doc.Insert(1, simpleRuleLayer(t))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.DeepestCachedDepth())
	_, ok = doc.CachedStructure(1)
	assert.False(t, ok)
	_, ok = doc.CachedStructure(0)
	assert.True(t, ok)
}

func TestCommitResolutionRejectsStaleVersion(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)

	stale := cachedResult(doc, 0)
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	err = doc.CommitResolution(stale)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflictRetry(err))
	assert.Equal(t, -1, doc.DeepestCachedDepth())
}

func TestCommitResolutionMemoizesFailures(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	result := cachedResult(doc, 0)
	result.Entries[1] = ResolvedEntry{Err: pkgerrors.NewUnresolvedRuleError(1, pkgerrors.NewNoMatchError("no placement"))}
	require.NoError(t, doc.CommitResolution(result))

	_, ok := doc.CachedStructure(1)
	assert.False(t, ok)
	snap := doc.Snapshot()
	assert.Equal(t, CacheFailed, snap.Entries[1].State)
	assert.Error(t, snap.Entries[1].Err)
}

func TestCommitResolutionAdvancesAllocator(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)

	result := cachedResult(doc, 0)
	result.NextAtomID = 7
	result.Allocations = map[string]map[valueobjects.AtomID]valueobjects.AtomID{
		"layer-a": {10: 3},
	}
	require.NoError(t, doc.CommitResolution(result))

	snap := doc.Snapshot()
	assert.Equal(t, valueobjects.AtomID(7), snap.NextAtomID)
	assert.Equal(t, valueobjects.AtomID(3), snap.Allocations["layer-a"][10])
}

func TestRemovePrunesLayerAllocations(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	rule := simpleRuleLayer(t)
	_, _, err = doc.Push(rule)
	require.NoError(t, err)

	result := cachedResult(doc, 0, 1)
	result.NextAtomID = 4
	result.Allocations = map[string]map[valueobjects.AtomID]valueobjects.AtomID{
		rule.ID().String(): {10: 3},
	}
	require.NoError(t, doc.CommitResolution(result))
	require.Contains(t, doc.Snapshot().Allocations, rule.ID().String())

	_, err = doc.Remove(1)
	require.NoError(t, err)

	// The record goes with the layer; the allocator high-water mark stays.
	snap := doc.Snapshot()
	assert.NotContains(t, snap.Allocations, rule.ID().String())
	assert.Equal(t, valueobjects.AtomID(4), snap.NextAtomID)
}

func TestSnapshotIsIsolatedFromLaterMutations(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)

	snap := doc.Snapshot()
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	assert.Len(t, snap.Layers, 1)
	assert.NotEqual(t, snap.Version, doc.Version())
}

func TestExportRestoreRoundTrip(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)
	_, _, err = doc.Push(simpleRuleLayer(t))
	require.NoError(t, err)

	export := doc.Export()
	data, err := json.Marshal(export)
	require.NoError(t, err)

	var decoded Export
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored, err := RestoreDocument(&decoded)
	require.NoError(t, err)
	assert.Equal(t, doc.ID(), restored.ID())
	assert.Equal(t, doc.Version(), restored.Version())
	assert.Equal(t, doc.LayerCount(), restored.LayerCount())

	// The cache starts cold after a restore.
	assert.Equal(t, -1, restored.DeepestCachedDepth())
}

func TestRestoreRejectsRuleAtDepthZero(t *testing.T) {
	export := &Export{Layers: []*layers.Layer{simpleRuleLayer(t)}}
	_, err := RestoreDocument(export)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestPullEventsDrains(t *testing.T) {
	doc := NewDocument()
	_, _, err := doc.Push(baseLayer(t))
	require.NoError(t, err)

	drained := doc.PullEvents()
	require.Len(t, drained, 2)
	assert.Equal(t, "document.created", drained[0].GetEventType())
	assert.Equal(t, "layer.pushed", drained[1].GetEventType())
	assert.Empty(t, doc.PullEvents())
}
