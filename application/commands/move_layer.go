package commands

import (
	"context"
	"fmt"

	"molstack/application/commands/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// MoveLayerCommand repositions a layer within the stack
type MoveLayerCommand struct {
	DocumentID valueobjects.DocumentID
	From       int
	To         int
	Result     *LayerMutationResult
}

// Validate validates the command
func (cmd *MoveLayerCommand) Validate() error {
	if cmd.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	if cmd.From < 0 || cmd.To < 0 {
		return pkgerrors.NewValidationError("layer index must not be negative")
	}
	if cmd.Result == nil {
		return pkgerrors.NewValidationError("move layer command needs a result slot")
	}
	return nil
}

// MoveLayerHandler handles the MoveLayerCommand
type MoveLayerHandler struct {
	service *services.StackService
}

// NewMoveLayerHandler creates a new handler instance
func NewMoveLayerHandler(service *services.StackService) *MoveLayerHandler {
	return &MoveLayerHandler{service: service}
}

// Handle executes the move layer command
func (h *MoveLayerHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*MoveLayerCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	version, err := h.service.MoveLayer(ctx, c.DocumentID, c.From, c.To)
	if err != nil {
		return err
	}
	*c.Result = LayerMutationResult{Index: c.To, Version: version}
	return nil
}
