package ports

import (
	"context"

	"molstack/domain/core/aggregates"
	"molstack/domain/core/valueobjects"
	"molstack/domain/events"
)

// DocumentRepository defines the interface for live document storage
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type DocumentRepository interface {
	// Save registers a document (create only; documents mutate in place)
	Save(ctx context.Context, doc *aggregates.Document) error

	// GetByID retrieves a document by its ID
	GetByID(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Document, error)

	// List returns every stored document
	List(ctx context.Context) ([]*aggregates.Document, error)

	// Delete removes a document
	Delete(ctx context.Context, id valueobjects.DocumentID) error
}

// ArchiveStore defines the interface for durable document exports. Unlike the
// live repository it stores the serialized form, so implementations can sit on
// embedded or remote storage.
type ArchiveStore interface {
	// Put persists a document export under its document ID
	Put(ctx context.Context, export *aggregates.Export) error

	// Get retrieves the most recent export for a document
	Get(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Export, error)

	// Delete removes a document's export
	Delete(ctx context.Context, id valueobjects.DocumentID) error

	// Close releases the store's resources
	Close() error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
