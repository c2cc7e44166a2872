package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"molstack/domain/core/aggregates"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/events"
	"molstack/domain/layers"
	"molstack/domain/matching"
	"molstack/domain/resolver"
	"molstack/infrastructure/persistence/memory"
	pkgerrors "molstack/pkg/errors"
)

type recordingArchive struct {
	mu      sync.Mutex
	exports map[valueobjects.DocumentID]*aggregates.Export
	deletes int
}

func newRecordingArchive() *recordingArchive {
	return &recordingArchive{exports: make(map[valueobjects.DocumentID]*aggregates.Export)}
}

func (a *recordingArchive) Put(ctx context.Context, export *aggregates.Export) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exports[export.ID] = export
	return nil
}

func (a *recordingArchive) Get(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Export, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	export, ok := a.exports[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("export " + id.String())
	}
	return export, nil
}

func (a *recordingArchive) Delete(ctx context.Context, id valueobjects.DocumentID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.exports, id)
	a.deletes++
	return nil
}

func (a *recordingArchive) Close() error { return nil }

func (a *recordingArchive) version(id valueobjects.DocumentID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	export, ok := a.exports[id]
	if !ok {
		return 0
	}
	return export.Version
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.GetEventType())
	}
	return out
}

func newTestService(t *testing.T) (*StackService, *recordingArchive, *recordingPublisher) {
	t.Helper()
	logger := zap.NewNop()
	engine := matching.NewEngine(matching.Config{}, nil)
	res := resolver.NewResolver(engine, logger, nil)
	scheduler := NewResolutionScheduler(res, 2, logger)
	archive := newRecordingArchive()
	publisher := &recordingPublisher{}
	service := NewStackService(memory.NewDocumentRepository(), archive, publisher, scheduler, logger)
	return service, archive, publisher
}

func testBase(t *testing.T) *entities.Structure {
	t.Helper()
	s, err := entities.NewStructure(
		[]entities.Atom{{ID: 1, Element: "C"}, {ID: 2, Element: "O"}},
		[]entities.Bond{{Key: valueobjects.NewBondKey(1, 2), Order: 1}},
	)
	require.NoError(t, err)
	return s
}

func hydrogenRule(t *testing.T) *layers.Layer {
	t.Helper()
	pattern, err := entities.NewStructure([]entities.Atom{{ID: 1, Element: "O"}}, nil)
	require.NoError(t, err)
	layer, err := layers.NewRuleLayer(pattern, []layers.EditOp{
		{Kind: layers.OpAddAtom, AtomID: 10, Element: "H"},
		{Kind: layers.OpAddBond, AtomID: 1, Other: 10, Order: 1},
	}, nil)
	require.NoError(t, err)
	return layer
}

func TestCreateDocumentPublishesAndArchives(t *testing.T) {
	service, archive, publisher := newTestService(t)

	doc, err := service.CreateDocument(context.Background(), testBase(t))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.LayerCount())
	assert.Equal(t, []string{"document.created", "layer.pushed"}, publisher.types())
	assert.Equal(t, doc.Version(), archive.version(doc.ID()))
}

func TestGetStructureResolvesStack(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)
	_, _, err = service.PushLayer(ctx, doc.ID(), hydrogenRule(t))
	require.NoError(t, err)

	// A negative depth selects the top of the stack.
	structure, depth, version, err := service.GetStructure(ctx, doc.ID(), -1)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
	assert.Equal(t, doc.Version(), version)
	assert.Equal(t, 3, structure.AtomCount())

	base, depth, _, err := service.GetStructure(ctx, doc.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
	assert.True(t, base.Equal(testBase(t)))
}

func TestGetStructureCachesAcrossCalls(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)
	_, _, err = service.PushLayer(ctx, doc.ID(), hydrogenRule(t))
	require.NoError(t, err)

	first, _, _, err := service.GetStructure(ctx, doc.ID(), 1)
	require.NoError(t, err)
	_, ok := doc.CachedStructure(1)
	assert.True(t, ok)

	again, _, _, err := service.GetStructure(ctx, doc.ID(), 1)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestGetStructureUnknownDocument(t *testing.T) {
	service, _, _ := newTestService(t)
	_, _, _, err := service.GetStructure(context.Background(), valueobjects.NewDocumentID(), 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGetStructureUnresolvedRule(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)

	pattern, err := entities.NewStructure([]entities.Atom{{ID: 1, Element: "N"}}, nil)
	require.NoError(t, err)
	unmatchable, err := layers.NewRuleLayer(pattern, nil, nil)
	require.NoError(t, err)
	_, _, err = service.PushLayer(ctx, doc.ID(), unmatchable)
	require.NoError(t, err)

	_, _, _, err = service.GetStructure(ctx, doc.ID(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnresolvedRule(err))
	assert.Equal(t, 1, pkgerrors.UnresolvedDepth(err))

	// The base below the failed rule is still readable.
	_, depth, _, err := service.GetStructure(ctx, doc.ID(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestLayerMutationsBumpVersion(t *testing.T) {
	service, archive, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)

	index, version, err := service.PushLayer(ctx, doc.ID(), hydrogenRule(t))
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, 3, version)

	version, err = service.InsertLayer(ctx, doc.ID(), 1, hydrogenRule(t))
	require.NoError(t, err)
	assert.Equal(t, 4, version)

	version, err = service.MoveLayer(ctx, doc.ID(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, version)

	version, err = service.RemoveLayer(ctx, doc.ID(), 2)
	require.NoError(t, err)
	assert.Equal(t, 6, version)

	summaries, listedVersion, err := service.ListLayers(ctx, doc.ID())
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, 6, listedVersion)
	assert.Equal(t, 6, archive.version(doc.ID()))
}

func TestDeleteDocumentRemovesEverything(t *testing.T) {
	service, archive, publisher := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)

	require.NoError(t, service.DeleteDocument(ctx, doc.ID()))
	assert.Equal(t, 1, archive.deletes)
	assert.Contains(t, publisher.types(), "document.deleted")

	_, _, err = service.ListLayers(ctx, doc.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestExportImportRoundTrip(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)
	_, _, err = service.PushLayer(ctx, doc.ID(), hydrogenRule(t))
	require.NoError(t, err)

	export, err := service.ExportDocument(ctx, doc.ID())
	require.NoError(t, err)
	require.NoError(t, service.DeleteDocument(ctx, doc.ID()))

	restored, err := service.ImportDocument(ctx, export)
	require.NoError(t, err)
	assert.Equal(t, doc.ID(), restored.ID())

	structure, _, _, err := service.GetStructure(ctx, restored.ID(), -1)
	require.NoError(t, err)
	assert.Equal(t, 3, structure.AtomCount())
}

func TestConcurrentResolutionsShareOnePass(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)
	_, _, err = service.PushLayer(ctx, doc.ID(), hydrogenRule(t))
	require.NoError(t, err)

	const callers = 8
	results := make([]*entities.Structure, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, _, errs[i] = service.GetStructure(ctx, doc.ID(), 1)
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[0].Equal(results[i]))
	}
}

func TestNoOpMutationSequenceRestoresStructure(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	doc, err := service.CreateDocument(ctx, testBase(t))
	require.NoError(t, err)
	_, _, err = service.PushLayer(ctx, doc.ID(), hydrogenRule(t))
	require.NoError(t, err)

	before, _, _, err := service.GetStructure(ctx, doc.ID(), -1)
	require.NoError(t, err)

	// Insert then remove at depth 1: the cache from depth 1 upward is
	// invalidated, and re-resolution must reproduce the identical structure,
	// recorded allocations included.
	_, err = service.InsertLayer(ctx, doc.ID(), 1, hydrogenRule(t))
	require.NoError(t, err)
	_, err = service.RemoveLayer(ctx, doc.ID(), 1)
	require.NoError(t, err)

	after, _, _, err := service.GetStructure(ctx, doc.ID(), -1)
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestSchedulerResolvesAfterDiscardedStalePass(t *testing.T) {
	logger := zap.NewNop()
	engine := matching.NewEngine(matching.Config{}, nil)
	res := resolver.NewResolver(engine, logger, nil)
	scheduler := NewResolutionScheduler(res, 1, logger)

	doc := aggregates.NewDocument()
	_, _, err := doc.Push(layers.NewBaseLayer(testBase(t)))
	require.NoError(t, err)

	// A pass computed before a mutation is rejected at commit time and must
	// not poison later scheduling.
	snap := doc.Snapshot()
	_, result, err := res.Resolve(context.Background(), snap, 0)
	require.NoError(t, err)

	_, _, err = doc.Push(hydrogenRule(t))
	require.NoError(t, err)
	err = doc.CommitResolution(result)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflictRetry(err))

	structure, err := scheduler.Resolve(context.Background(), doc, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, structure.AtomCount())
}
