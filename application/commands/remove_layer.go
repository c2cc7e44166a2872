package commands

import (
	"context"
	"fmt"

	"molstack/application/commands/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// RemoveLayerCommand deletes the layer at an index
type RemoveLayerCommand struct {
	DocumentID valueobjects.DocumentID
	Index      int
	Result     *LayerMutationResult
}

// Validate validates the command
func (cmd *RemoveLayerCommand) Validate() error {
	if cmd.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	if cmd.Index < 0 {
		return pkgerrors.NewValidationError("layer index must not be negative")
	}
	if cmd.Result == nil {
		return pkgerrors.NewValidationError("remove layer command needs a result slot")
	}
	return nil
}

// RemoveLayerHandler handles the RemoveLayerCommand
type RemoveLayerHandler struct {
	service *services.StackService
}

// NewRemoveLayerHandler creates a new handler instance
func NewRemoveLayerHandler(service *services.StackService) *RemoveLayerHandler {
	return &RemoveLayerHandler{service: service}
}

// Handle executes the remove layer command
func (h *RemoveLayerHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*RemoveLayerCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	version, err := h.service.RemoveLayer(ctx, c.DocumentID, c.Index)
	if err != nil {
		return err
	}
	*c.Result = LayerMutationResult{Index: c.Index, Version: version}
	return nil
}
