package commands

import (
	"context"
	"fmt"

	"molstack/application/commands/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// DeleteDocumentCommand removes a document and its archived export
type DeleteDocumentCommand struct {
	DocumentID valueobjects.DocumentID
}

// Validate validates the command
func (cmd *DeleteDocumentCommand) Validate() error {
	if cmd.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	return nil
}

// DeleteDocumentHandler handles the DeleteDocumentCommand
type DeleteDocumentHandler struct {
	service *services.StackService
}

// NewDeleteDocumentHandler creates a new handler instance
func NewDeleteDocumentHandler(service *services.StackService) *DeleteDocumentHandler {
	return &DeleteDocumentHandler{service: service}
}

// Handle executes the delete document command
func (h *DeleteDocumentHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*DeleteDocumentCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	return h.service.DeleteDocument(ctx, c.DocumentID)
}
