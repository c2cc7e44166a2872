package commands

import (
	"context"
	"fmt"

	"molstack/application/commands/bus"
	"molstack/application/services"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

// InsertLayerCommand places a layer at an index, shifting higher layers up
type InsertLayerCommand struct {
	DocumentID valueobjects.DocumentID
	Index      int
	Layer      *layers.Layer
	Result     *LayerMutationResult
}

// Validate validates the command
func (cmd *InsertLayerCommand) Validate() error {
	if cmd.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	if cmd.Index < 0 {
		return pkgerrors.NewValidationError("layer index must not be negative")
	}
	if cmd.Layer == nil {
		return pkgerrors.NewValidationError("layer payload is required")
	}
	if cmd.Result == nil {
		return pkgerrors.NewValidationError("insert layer command needs a result slot")
	}
	return nil
}

// InsertLayerHandler handles the InsertLayerCommand
type InsertLayerHandler struct {
	service *services.StackService
}

// NewInsertLayerHandler creates a new handler instance
func NewInsertLayerHandler(service *services.StackService) *InsertLayerHandler {
	return &InsertLayerHandler{service: service}
}

// Handle executes the insert layer command
func (h *InsertLayerHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*InsertLayerCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	version, err := h.service.InsertLayer(ctx, c.DocumentID, c.Index, c.Layer)
	if err != nil {
		return err
	}
	*c.Result = LayerMutationResult{Index: c.Index, Version: version}
	return nil
}
