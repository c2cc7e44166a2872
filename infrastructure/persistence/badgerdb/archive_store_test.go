package badgerdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"molstack/domain/core/aggregates"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

func newTestStore(t *testing.T) *ArchiveStore {
	t.Helper()
	store, err := NewArchiveStore(Options{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleExport(t *testing.T) *aggregates.Export {
	t.Helper()
	base, err := entities.NewStructure(
		[]entities.Atom{{ID: 1, Element: "C"}, {ID: 2, Element: "O"}},
		[]entities.Bond{{Key: valueobjects.NewBondKey(1, 2), Order: 1}},
	)
	require.NoError(t, err)

	doc := aggregates.NewDocument()
	_, _, err = doc.Push(layers.NewBaseLayer(base))
	require.NoError(t, err)
	return doc.Export()
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	export := sampleExport(t)

	require.NoError(t, store.Put(ctx, export))

	got, err := store.Get(ctx, export.ID)
	require.NoError(t, err)
	assert.Equal(t, export.ID, got.ID)
	assert.Equal(t, export.Version, got.Version)
	require.Len(t, got.Layers, 1)
	assert.Equal(t, layers.KindBase, got.Layers[0].Kind())
}

func TestPutOverwritesPreviousExport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	export := sampleExport(t)

	require.NoError(t, store.Put(ctx, export))
	export.Version = 9
	require.NoError(t, store.Put(ctx, export))

	got, err := store.Get(ctx, export.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Version)
}

func TestGetMissingExport(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), valueobjects.NewDocumentID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteExport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	export := sampleExport(t)

	require.NoError(t, store.Put(ctx, export))
	require.NoError(t, store.Delete(ctx, export.ID))

	_, err := store.Get(ctx, export.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	// Deleting an absent key is a no-op.
	require.NoError(t, store.Delete(ctx, export.ID))
}

func TestPutRejectsNilExport(t *testing.T) {
	store := newTestStore(t)
	err := store.Put(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}
