// Package memory holds the in-process document registry. Documents are live
// aggregates with their own locks, so the registry only guards the map.
package memory

import (
	"context"
	"fmt"
	"sync"

	"molstack/application/ports"
	"molstack/domain/core/aggregates"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// DocumentRepository implements ports.DocumentRepository over a map
type DocumentRepository struct {
	mu   sync.RWMutex
	docs map[valueobjects.DocumentID]*aggregates.Document
}

// NewDocumentRepository creates an empty registry
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{
		docs: make(map[valueobjects.DocumentID]*aggregates.Document),
	}
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

// Save registers a document
func (r *DocumentRepository) Save(ctx context.Context, doc *aggregates.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.ID()]; exists {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("document %s already exists", doc.ID()))
	}
	r.docs[doc.ID()] = doc
	return nil
}

// GetByID retrieves a document by its ID
func (r *DocumentRepository) GetByID(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.docs[id]
	if !exists {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("document %s", id))
	}
	return doc, nil
}

// List returns every stored document
func (r *DocumentRepository) List(ctx context.Context) ([]*aggregates.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*aggregates.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc)
	}
	return out, nil
}

// Delete removes a document
func (r *DocumentRepository) Delete(ctx context.Context, id valueobjects.DocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[id]; !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("document %s", id))
	}
	delete(r.docs, id)
	return nil
}
