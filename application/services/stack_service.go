// Package services holds the application facade over the document domain:
// stack mutations, scheduled resolution and archival.
package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"molstack/application/ports"
	"molstack/domain/core/aggregates"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/events"
	"molstack/domain/layers"
)

// StackService coordinates documents, the resolution scheduler, the event
// publisher and the archive. It is the single entry point the command and
// query handlers talk to.
type StackService struct {
	repo      ports.DocumentRepository
	archive   ports.ArchiveStore
	publisher ports.EventPublisher
	scheduler *ResolutionScheduler
	logger    *zap.Logger
}

// NewStackService creates the service
func NewStackService(
	repo ports.DocumentRepository,
	archive ports.ArchiveStore,
	publisher ports.EventPublisher,
	scheduler *ResolutionScheduler,
	logger *zap.Logger,
) *StackService {
	return &StackService{
		repo:      repo,
		archive:   archive,
		publisher: publisher,
		scheduler: scheduler,
		logger:    logger,
	}
}

// CreateDocument creates a document whose depth-0 layer is the given base
// snapshot. A nil base yields an empty base layer.
func (s *StackService) CreateDocument(ctx context.Context, base *entities.Structure) (*aggregates.Document, error) {
	doc := aggregates.NewDocument()
	if _, _, err := doc.Push(layers.NewBaseLayer(base)); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, doc)
	s.archivePut(ctx, doc)
	return doc, nil
}

// ImportDocument restores a document from an export and registers it
func (s *StackService) ImportDocument(ctx context.Context, export *aggregates.Export) (*aggregates.Document, error) {
	doc, err := aggregates.RestoreDocument(export)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, doc)
	s.archivePut(ctx, doc)
	return doc, nil
}

// DeleteDocument removes a document and its archived export
func (s *StackService) DeleteDocument(ctx context.Context, id valueobjects.DocumentID) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	version := doc.Version()
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.archive.Delete(ctx, id); err != nil {
		s.logger.Warn("Failed to delete archived export",
			zap.String("document_id", id.String()), zap.Error(err))
	}
	s.publishDeleted(ctx, id, version)
	return nil
}

// PushLayer appends a layer on top of a document's stack
func (s *StackService) PushLayer(ctx context.Context, id valueobjects.DocumentID, layer *layers.Layer) (int, int, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	index, version, err := doc.Push(layer)
	if err != nil {
		return 0, 0, err
	}
	s.publishEvents(ctx, doc)
	s.archivePut(ctx, doc)
	return index, version, nil
}

// InsertLayer places a layer at an index, shifting higher layers up
func (s *StackService) InsertLayer(ctx context.Context, id valueobjects.DocumentID, index int, layer *layers.Layer) (int, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	version, err := doc.Insert(index, layer)
	if err != nil {
		return 0, err
	}
	s.publishEvents(ctx, doc)
	s.archivePut(ctx, doc)
	return version, nil
}

// RemoveLayer deletes the layer at an index
func (s *StackService) RemoveLayer(ctx context.Context, id valueobjects.DocumentID, index int) (int, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	version, err := doc.Remove(index)
	if err != nil {
		return 0, err
	}
	s.publishEvents(ctx, doc)
	s.archivePut(ctx, doc)
	return version, nil
}

// MoveLayer repositions a layer within the stack
func (s *StackService) MoveLayer(ctx context.Context, id valueobjects.DocumentID, from, to int) (int, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	version, err := doc.Move(from, to)
	if err != nil {
		return 0, err
	}
	s.publishEvents(ctx, doc)
	s.archivePut(ctx, doc)
	return version, nil
}

// GetStructure resolves and returns the structure at depth. A negative depth
// selects the top of the stack. An empty document yields the empty structure.
func (s *StackService) GetStructure(ctx context.Context, id valueobjects.DocumentID, depth int) (*entities.Structure, int, int, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, 0, err
	}

	count := doc.LayerCount()
	if count == 0 {
		return entities.EmptyStructure(), -1, doc.Version(), nil
	}
	if depth < 0 {
		depth = count - 1
	}

	structure, err := s.scheduler.Resolve(ctx, doc, depth)
	if err != nil {
		return nil, 0, 0, err
	}
	return structure, depth, doc.Version(), nil
}

// ListLayers returns bottom-up summaries of a document's stack
func (s *StackService) ListLayers(ctx context.Context, id valueobjects.DocumentID) ([]layers.Summary, int, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return doc.ListLayers(), doc.Version(), nil
}

// ListDocuments returns every live document
func (s *StackService) ListDocuments(ctx context.Context) ([]*aggregates.Document, error) {
	return s.repo.List(ctx)
}

// ExportDocument serializes a document and refreshes its archived copy
func (s *StackService) ExportDocument(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Export, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	export := doc.Export()
	if err := s.archive.Put(ctx, export); err != nil {
		s.logger.Warn("Failed to archive export",
			zap.String("document_id", id.String()), zap.Error(err))
	}
	return export, nil
}

// publishEvents drains and publishes a document's pending events. Publishing
// is best effort; a failed publish never fails the mutation that raised it.
func (s *StackService) publishEvents(ctx context.Context, doc *aggregates.Document) {
	pending := doc.PullEvents()
	if len(pending) == 0 {
		return
	}
	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.logger.Warn("Failed to publish domain events",
			zap.String("document_id", doc.ID().String()),
			zap.Int("count", len(pending)),
			zap.Error(err),
		)
	}
}

func (s *StackService) publishDeleted(ctx context.Context, id valueobjects.DocumentID, version int) {
	event := events.NewDocumentDeleted(id, version, time.Now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish domain event",
			zap.String("document_id", id.String()), zap.Error(err))
	}
}

// archivePut refreshes a document's durable export after a mutation
func (s *StackService) archivePut(ctx context.Context, doc *aggregates.Document) {
	if err := s.archive.Put(ctx, doc.Export()); err != nil {
		s.logger.Warn("Failed to archive document",
			zap.String("document_id", doc.ID().String()), zap.Error(err))
	}
}
