// Package commands holds the write-side operations of the document service.
// Each command validates itself; its handler delegates to the stack service.
package commands

import (
	"context"
	"fmt"

	"molstack/application/commands/bus"
	"molstack/application/services"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// CreateDocumentCommand creates a document with the given base snapshot at
// depth 0. The handler writes the outcome into Result.
type CreateDocumentCommand struct {
	Base   *entities.Structure
	Result *CreateDocumentResult
}

// CreateDocumentResult carries the identity of the created document
type CreateDocumentResult struct {
	DocumentID valueobjects.DocumentID
	Version    int
	LayerCount int
}

// Validate validates the command
func (cmd *CreateDocumentCommand) Validate() error {
	if cmd.Result == nil {
		return pkgerrors.NewValidationError("create document command needs a result slot")
	}
	return nil
}

// CreateDocumentHandler handles the CreateDocumentCommand
type CreateDocumentHandler struct {
	service *services.StackService
}

// NewCreateDocumentHandler creates a new handler instance
func NewCreateDocumentHandler(service *services.StackService) *CreateDocumentHandler {
	return &CreateDocumentHandler{service: service}
}

// Handle executes the create document command
func (h *CreateDocumentHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*CreateDocumentCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	doc, err := h.service.CreateDocument(ctx, c.Base)
	if err != nil {
		return err
	}
	*c.Result = CreateDocumentResult{
		DocumentID: doc.ID(),
		Version:    doc.Version(),
		LayerCount: doc.LayerCount(),
	}
	return nil
}
