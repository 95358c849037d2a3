package api

import (
	"net/http"

	"go.uber.org/zap"
)

// HandleGetIndexes handles GET requests to retrieve all indexes for a kind
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	indexes, err := h.store.DB().GetIndexes(kind.Collection)
	if err != nil {
		h.logger.Error("Failed to get indexes", zap.String("kind", kind.Name), zap.Error(err))
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"kind":        kind.Name,
		"indexes":     indexes,
		"index_count": len(indexes),
	})
}
