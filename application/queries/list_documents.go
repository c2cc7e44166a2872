package queries

import (
	"context"
	"fmt"
	"sort"
	"time"

	"molstack/application/queries/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
)

// ListDocumentsQuery returns summaries of every live document
type ListDocumentsQuery struct{}

// DocumentSummary is one document in a listing
type DocumentSummary struct {
	DocumentID valueobjects.DocumentID
	Version    int
	LayerCount int
	CreatedAt  time.Time
}

// Validate validates the query
func (q *ListDocumentsQuery) Validate() error {
	return nil
}

// ListDocumentsHandler handles the ListDocumentsQuery
type ListDocumentsHandler struct {
	service *services.StackService
}

// NewListDocumentsHandler creates a new handler instance
func NewListDocumentsHandler(service *services.StackService) *ListDocumentsHandler {
	return &ListDocumentsHandler{service: service}
}

// Handle executes the list documents query
func (h *ListDocumentsHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	if _, ok := query.(*ListDocumentsQuery); !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	docs, err := h.service.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, DocumentSummary{
			DocumentID: doc.ID(),
			Version:    doc.Version(),
			LayerCount: doc.LayerCount(),
			CreatedAt:  doc.CreatedAt(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
