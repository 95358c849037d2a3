package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// BatchUpdateRequest represents the request body for batch update operations
type BatchUpdateRequest struct {
	Operations []BatchUpdateOperation `json:"operations"`
}

// BatchUpdateOperation represents a single update operation in the request
type BatchUpdateOperation struct {
	ID      string          `json:"id"`
	Updates domain.Document `json:"updates"`
}

// BatchUpdateResponse represents the response for batch update operations
type BatchUpdateResponse struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	UpdatedCount int               `json:"updated_count"`
	FailedCount  int               `json:"failed_count"`
	Kind         string            `json:"kind"`
	Documents    []domain.Document `json:"documents"`
	Errors       []string          `json:"errors,omitempty"`
}

// HandleBatchUpdate handles PATCH requests to update many documents. Each
// operation is validated and applied on its own; failures are listed and
// answered with 206.
func (h *Handler) HandleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	h.logger.Debug("handleBatchUpdate called", zap.String("kind", kind.Name))

	var req BatchUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Decoding body failed", zap.Error(err))
		return
	}

	if len(req.Operations) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "No operations provided")
		return
	}
	if len(req.Operations) > maxBatchSize {
		h.logger.Warn("Too many operations for batch update", zap.Int("count", len(req.Operations)))
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d operations allowed per batch", maxBatchSize))
		return
	}

	response := BatchUpdateResponse{Kind: kind.Name, Documents: []domain.Document{}}
	for i, op := range req.Operations {
		if op.ID == "" {
			response.FailedCount++
			response.Errors = append(response.Errors, fmt.Sprintf("operation %d: id is required", i))
			continue
		}
		doc, err := h.store.Patch(kind, op.ID, op.Updates)
		if err != nil {
			response.FailedCount++
			response.Errors = append(response.Errors, fmt.Sprintf("operation %d (%s): %v", i, op.ID, err))
			continue
		}
		response.UpdatedCount++
		response.Documents = append(response.Documents, doc)
	}

	status := http.StatusOK
	switch {
	case response.FailedCount == 0:
		response.Success = true
		response.Message = "Batch update completed successfully"
	case response.UpdatedCount == 0:
		status = http.StatusUnprocessableEntity
		response.Message = "No operations could be applied"
	default:
		status = http.StatusPartialContent
		response.Message = "Batch update partially completed"
	}
	writeJSON(w, status, response)

	h.logger.Info("Batch update completed",
		zap.String("kind", kind.Name),
		zap.Int("updated", response.UpdatedCount),
		zap.Int("failed", response.FailedCount))
}
