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

// PushLayerCommand appends a layer on top of a document's stack
type PushLayerCommand struct {
	DocumentID valueobjects.DocumentID
	Layer      *layers.Layer
	Result     *LayerMutationResult
}

// LayerMutationResult carries the outcome of a stack mutation
type LayerMutationResult struct {
	Index   int
	Version int
}

// Validate validates the command
func (cmd *PushLayerCommand) Validate() error {
	if cmd.DocumentID.IsZero() {
		return pkgerrors.NewValidationError("document ID is required")
	}
	if cmd.Layer == nil {
		return pkgerrors.NewValidationError("layer payload is required")
	}
	if cmd.Result == nil {
		return pkgerrors.NewValidationError("push layer command needs a result slot")
	}
	return nil
}

// PushLayerHandler handles the PushLayerCommand
type PushLayerHandler struct {
	service *services.StackService
}

// NewPushLayerHandler creates a new handler instance
func NewPushLayerHandler(service *services.StackService) *PushLayerHandler {
	return &PushLayerHandler{service: service}
}

// Handle executes the push layer command
func (h *PushLayerHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(*PushLayerCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	index, version, err := h.service.PushLayer(ctx, c.DocumentID, c.Layer)
	if err != nil {
		return err
	}
	*c.Result = LayerMutationResult{Index: index, Version: version}
	return nil
}
