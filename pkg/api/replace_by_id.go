package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// HandleReplaceById handles PUT requests that swap a whole document
func (h *Handler) HandleReplaceById(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]
	h.logger.Debug("handleReplaceById called", zap.String("kind", kind.Name), zap.String("id", docId))

	var doc domain.Document
	if err := decodeJSON(w, r, &doc); err != nil {
		h.logger.Warn("Decoding body failed", zap.Error(err))
		return
	}

	replaced, err := h.store.Replace(kind, docId, doc)
	if err != nil {
		h.logger.Info("Replace rejected", zap.String("kind", kind.Name), zap.String("id", docId), zap.Error(err))
		WriteStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, replaced)
}
