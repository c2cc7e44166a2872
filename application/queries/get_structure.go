// Package queries holds the read-side operations of the document service
package queries

import (
	"context"
	"fmt"

	"molstack/application/queries/bus"
	"molstack/application/services"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// GetStructureQuery resolves the structure at a stack depth. A nil Depth
// selects the top of the stack.
type GetStructureQuery struct {
	DocumentID valueobjects.DocumentID
	Depth      *int
}

// StructureView is the query result
type StructureView struct {
	DocumentID valueobjects.DocumentID
	Depth      int
	Version    int
	Structure  *entities.Structure
}

// Validate validates the query
func (q *GetStructureQuery) Validate() error {
	if q.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	if q.Depth != nil && *q.Depth < 0 {
		return pkgerrors.NewValidationError("depth must not be negative")
	}
	return nil
}

// GetStructureHandler handles the GetStructureQuery
type GetStructureHandler struct {
	service *services.StackService
}

// NewGetStructureHandler creates a new handler instance
func NewGetStructureHandler(service *services.StackService) *GetStructureHandler {
	return &GetStructureHandler{service: service}
}

// Handle executes the get structure query
func (h *GetStructureHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*GetStructureQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	depth := -1
	if q.Depth != nil {
		depth = *q.Depth
	}
	structure, resolvedDepth, version, err := h.service.GetStructure(ctx, q.DocumentID, depth)
	if err != nil {
		return nil, err
	}
	return &StructureView{
		DocumentID: q.DocumentID,
		Depth:      resolvedDepth,
		Version:    version,
		Structure:  structure,
	}, nil
}
