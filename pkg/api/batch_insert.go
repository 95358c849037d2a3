package api

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/domain"
)

// BatchInsertRequest represents the request body for batch insert operations
type BatchInsertRequest struct {
	Documents []domain.Document `json:"documents"`
}

// BatchInsertResponse represents the response for batch insert operations
type BatchInsertResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	InsertedCount int               `json:"inserted_count"`
	Kind          string            `json:"kind"`
	Documents     []domain.Document `json:"documents"`
}

// HandleBatchInsert handles POST requests to insert many documents at once.
// Either every document is stored or none is.
func (h *Handler) HandleBatchInsert(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	h.logger.Debug("handleBatchInsert called", zap.String("kind", kind.Name))

	var req BatchInsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Decoding body failed", zap.Error(err))
		return
	}

	if len(req.Documents) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "No documents provided")
		return
	}
	if len(req.Documents) > maxBatchSize {
		h.logger.Warn("Too many documents for batch insert", zap.Int("count", len(req.Documents)))
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d documents allowed per batch", maxBatchSize))
		return
	}
	if kind.Singleton() {
		WriteJSONError(w, http.StatusBadRequest, kind.Label+" holds a single document")
		return
	}

	docs, err := h.store.CreateMany(kind, req.Documents)
	if err != nil {
		h.logger.Info("Batch insert rejected", zap.String("kind", kind.Name), zap.Error(err))
		var batchErr *content.BatchError
		if errors.As(err, &batchErr) {
			writeBatchError(w, batchErr)
			return
		}
		WriteStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BatchInsertResponse{
		Success:       true,
		Message:       "Batch insert completed successfully",
		InsertedCount: len(docs),
		Kind:          kind.Name,
		Documents:     docs,
	})
	h.logger.Info("Batch insert successful", zap.String("kind", kind.Name), zap.Int("inserted", len(docs)))
}

// writeBatchError reports the failing document's index and its field errors
func writeBatchError(w http.ResponseWriter, batchErr *content.BatchError) {
	status := StatusFor(batchErr.Err)
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: batchErr.Error(),
		Code:    status,
	}
	var verrs content.ValidationErrors
	if errors.As(batchErr.Err, &verrs) {
		response.Fields = verrs
	}
	writeErrorResponse(w, response)
}
