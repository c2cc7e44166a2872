// Package handlers exposes the document service over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"molstack/application/commands"
	"molstack/application/commands/bus"
	"molstack/application/queries"
	querybus "molstack/application/queries/bus"
	"molstack/domain/core/aggregates"
	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
	"molstack/pkg/utils"
)

// DocumentHandler handles document-related HTTP requests
type DocumentHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     pkgerrors.NewErrorHandler(logger),
		logger:     logger,
	}
}

// CreateDocumentRequest represents the request body for creating a document
type CreateDocumentRequest struct {
	// Base is the depth-0 snapshot; omitted means an empty base layer.
	Base *entities.Structure `json:"base,omitempty"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID         string `json:"id"`
	Version    int    `json:"version"`
	LayerCount int    `json:"layer_count"`
}

// MutationResponse reports a stack mutation
type MutationResponse struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Version    int    `json:"version"`
}

// StructureResponse carries a resolved structure
type StructureResponse struct {
	DocumentID string              `json:"document_id"`
	Depth      int                 `json:"depth"`
	Version    int                 `json:"version"`
	Structure  *entities.Structure `json:"structure"`
}

// MoveLayerRequest represents the request body for moving a layer
type MoveLayerRequest struct {
	To *int `json:"to" validate:"required"`
}

// CreateDocument handles POST /documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
			return
		}
	}

	result := &commands.CreateDocumentResult{}
	cmd := &commands.CreateDocumentCommand{Base: req.Base, Result: result}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, DocumentResponse{
		ID:         result.DocumentID.String(),
		Version:    result.Version,
		LayerCount: result.LayerCount,
	})
}

// ListDocuments handles GET /documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	out, err := h.queryBus.Ask(r.Context(), &queries.ListDocumentsQuery{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	summaries := out.([]queries.DocumentSummary)

	responses := make([]DocumentResponse, 0, len(summaries))
	for _, s := range summaries {
		responses = append(responses, DocumentResponse{
			ID:         s.DocumentID.String(),
			Version:    s.Version,
			LayerCount: s.LayerCount,
		})
	}
	h.respondJSON(w, http.StatusOK, responses)
}

// DeleteDocument handles DELETE /documents/{documentID}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := h.commandBus.Send(r.Context(), &commands.DeleteDocumentCommand{DocumentID: id}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStructure handles GET /documents/{documentID}/structure
func (h *DocumentHandler) GetStructure(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := &queries.GetStructureQuery{DocumentID: id}
	if raw := r.URL.Query().Get("depth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth < 0 {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("depth must be a non-negative integer"))
			return
		}
		query.Depth = &depth
	}

	out, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	view := out.(*queries.StructureView)

	h.respondJSON(w, http.StatusOK, StructureResponse{
		DocumentID: view.DocumentID.String(),
		Depth:      view.Depth,
		Version:    view.Version,
		Structure:  view.Structure,
	})
}

// ListLayers handles GET /documents/{documentID}/layers
func (h *DocumentHandler) ListLayers(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	out, err := h.queryBus.Ask(r.Context(), &queries.ListLayersQuery{DocumentID: id})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, out)
}

// PushLayer handles POST /documents/{documentID}/layers
func (h *DocumentHandler) PushLayer(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	layer, err := h.decodeLayer(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result := &commands.LayerMutationResult{}
	cmd := &commands.PushLayerCommand{DocumentID: id, Layer: layer, Result: result}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, MutationResponse{
		DocumentID: id.String(),
		Index:      result.Index,
		Version:    result.Version,
	})
}

// InsertLayer handles POST /documents/{documentID}/layers/{index}
func (h *DocumentHandler) InsertLayer(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	index, err := h.layerIndex(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	layer, err := h.decodeLayer(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result := &commands.LayerMutationResult{}
	cmd := &commands.InsertLayerCommand{DocumentID: id, Index: index, Layer: layer, Result: result}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, MutationResponse{
		DocumentID: id.String(),
		Index:      result.Index,
		Version:    result.Version,
	})
}

// RemoveLayer handles DELETE /documents/{documentID}/layers/{index}
func (h *DocumentHandler) RemoveLayer(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	index, err := h.layerIndex(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result := &commands.LayerMutationResult{}
	cmd := &commands.RemoveLayerCommand{DocumentID: id, Index: index, Result: result}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, MutationResponse{
		DocumentID: id.String(),
		Index:      result.Index,
		Version:    result.Version,
	})
}

// MoveLayer handles POST /documents/{documentID}/layers/{index}/move
func (h *DocumentHandler) MoveLayer(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	from, err := h.layerIndex(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req MoveLayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	result := &commands.LayerMutationResult{}
	cmd := &commands.MoveLayerCommand{DocumentID: id, From: from, To: *req.To, Result: result}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, MutationResponse{
		DocumentID: id.String(),
		Index:      result.Index,
		Version:    result.Version,
	})
}

// ExportDocument handles GET /documents/{documentID}/export
func (h *DocumentHandler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	id, err := h.documentID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	out, err := h.queryBus.Ask(r.Context(), &queries.ExportDocumentQuery{DocumentID: id})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, out)
}

// ImportDocument handles POST /documents/import
func (h *DocumentHandler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	var export aggregates.Export
	if err := json.NewDecoder(r.Body).Decode(&export); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid export payload: "+err.Error()))
		return
	}

	result := &commands.CreateDocumentResult{}
	cmd := &commands.ImportDocumentCommand{Export: &export, Result: result}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, DocumentResponse{
		ID:         result.DocumentID.String(),
		Version:    result.Version,
		LayerCount: result.LayerCount,
	})
}

func (h *DocumentHandler) documentID(r *http.Request) (valueobjects.DocumentID, error) {
	raw := chi.URLParam(r, "documentID")
	id, err := valueobjects.NewDocumentIDFromString(raw)
	if err != nil {
		return valueobjects.DocumentID{}, pkgerrors.NewValidationError("invalid document ID")
	}
	return id, nil
}

func (h *DocumentHandler) layerIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, pkgerrors.NewValidationError("layer index must be a non-negative integer")
	}
	return index, nil
}

// decodeLayer parses a layer payload, running the rule validation that guards
// stack entry.
func (h *DocumentHandler) decodeLayer(r *http.Request) (*layers.Layer, error) {
	var layer layers.Layer
	if err := json.NewDecoder(r.Body).Decode(&layer); err != nil {
		if pkgerrors.GetAppError(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.NewValidationError("invalid layer payload: " + err.Error())
	}
	return &layer, nil
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
