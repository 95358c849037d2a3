package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleDeleteById handles DELETE requests to remove a specific document by ID
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]

	if err := h.store.Delete(kind, docId); err != nil {
		h.logger.Info("Delete failed", zap.String("kind", kind.Name), zap.String("id", docId), zap.Error(err))
		WriteStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
