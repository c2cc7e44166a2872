package commands

import (
	"context"
	"fmt"

	"molstack/application/commands/bus"
	"molstack/application/services"
	"molstack/domain/core/aggregates"
	pkgerrors "molstack/pkg/errors"
)

// ImportDocumentCommand restores a previously exported document
type ImportDocumentCommand struct {
	Export *aggregates.Export
	Result *CreateDocumentResult
}

// Validate validates the command
func (cmd *ImportDocumentCommand) Validate() error {
	if cmd.Export == nil {
		return pkgerrors.NewValidationError("export payload is required")
	}
	if cmd.Result == nil {
		return pkgerrors.NewValidationError("import document command needs a result slot")
	}
	return nil
}

// ImportDocumentHandler handles the ImportDocumentCommand
type ImportDocumentHandler struct {
	service *services.StackService
}

// NewImportDocumentHandler creates a new handler instance
func NewImportDocumentHandler(service *services.StackService) *ImportDocumentHandler {
	return &ImportDocumentHandler{service: service}
}

// Handle executes the import document command
func (h *ImportDocumentHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*ImportDocumentCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	doc, err := h.service.ImportDocument(ctx, c.Export)
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
