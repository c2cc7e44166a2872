package queries

import (
	"context"
	"fmt"

	"molstack/application/queries/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// ExportDocumentQuery serializes a whole document for transfer
type ExportDocumentQuery struct {
	DocumentID valueobjects.DocumentID
}

// Validate validates the query
func (q *ExportDocumentQuery) Validate() error {
	if q.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	return nil
}

// ExportDocumentHandler handles the ExportDocumentQuery
type ExportDocumentHandler struct {
	service *services.StackService
}

// NewExportDocumentHandler creates a new handler instance
func NewExportDocumentHandler(service *services.StackService) *ExportDocumentHandler {
	return &ExportDocumentHandler{service: service}
}

// Handle executes the export document query
func (h *ExportDocumentHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(*ExportDocumentQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	return h.service.ExportDocument(ctx, q.DocumentID)
}
