package queries

import (
	"context"
	"fmt"

	"molstack/application/queries/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

// ListLayersQuery returns bottom-up summaries of a document's stack
type ListLayersQuery struct {
	DocumentID valueobjects.DocumentID
}

// LayerListView is the query result
type LayerListView struct {
	DocumentID valueobjects.DocumentID `json:"document_id"`
	Version    int                     `json:"version"`
	Layers     []layers.Summary        `json:"layers"`
}

// Validate validates the query
func (q *ListLayersQuery) Validate() error {
	if q.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	return nil
}

// ListLayersHandler handles the ListLayersQuery
type ListLayersHandler struct {
	service *services.StackService
}

// NewListLayersHandler creates a new handler instance
func NewListLayersHandler(service *services.StackService) *ListLayersHandler {
	return &ListLayersHandler{service: service}
}

// Handle executes the list layers query
func (h *ListLayersHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*ListLayersQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	summaries, version, err := h.service.ListLayers(ctx, q.DocumentID)
	if err != nil {
		return nil, err
	}
	return &LayerListView{DocumentID: q.DocumentID, Version: version, Layers: summaries}, nil
}
