package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleGetById handles GET requests to retrieve a specific document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]

	doc, err := h.store.Get(kind, docId)
	if err != nil {
		h.logger.Debug("Document not found", zap.String("kind", kind.Name), zap.String("id", docId))
		WriteStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
