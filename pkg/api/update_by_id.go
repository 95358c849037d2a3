package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// HandleUpdateById handles PATCH requests that merge fields into a document.
// A null value removes the field; the merged document must still be valid.
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]
	h.logger.Debug("handleUpdateById called", zap.String("kind", kind.Name), zap.String("id", docId))

	var updates domain.Document
	if err := decodeJSON(w, r, &updates); err != nil {
		h.logger.Warn("Decoding body failed", zap.Error(err))
		return
	}

	doc, err := h.store.Patch(kind, docId, updates)
	if err != nil {
		h.logger.Info("Update rejected", zap.String("kind", kind.Name), zap.String("id", docId), zap.Error(err))
		WriteStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
