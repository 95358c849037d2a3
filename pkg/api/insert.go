package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// HandleInsert handles POST requests to create a document of a kind
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	h.logger.Debug("handleInsert called", zap.String("kind", kind.Name))

	var doc domain.Document
	if err := decodeJSON(w, r, &doc); err != nil {
		h.logger.Warn("Decoding body failed", zap.Error(err))
		return
	}

	stored, err := h.store.Create(kind, doc)
	if err != nil {
		h.logger.Info("Insert rejected", zap.String("kind", kind.Name), zap.Error(err))
		WriteStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, stored)
}
