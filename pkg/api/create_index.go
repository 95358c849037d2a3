package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/domain"
)

// HandleCreateIndex creates an index on a field of a kind's collection.
// Pass ?unique=true for a unique index.
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	fieldName := mux.Vars(r)["field"]

	if fieldName == "" {
		WriteJSONError(w, http.StatusBadRequest, "field name is required")
		return
	}

	// Prevent creating index on _id (it's automatically created)
	if fieldName == domain.FieldID {
		WriteJSONError(w, http.StatusBadRequest, "cannot create index on _id field (automatically indexed)")
		return
	}

	unique := false
	if v := r.URL.Query().Get("unique"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid unique flag: "+v)
			return
		}
		unique = parsed
	}

	if err := h.store.DB().CreateIndex(kind.Collection, fieldName, unique); err != nil {
		h.logger.Warn("Failed to create index",
			zap.String("kind", kind.Name), zap.String("field", fieldName), zap.Error(err))
		WriteStoreError(w, err)
		return
	}

	h.logger.Info("Index created", zap.String("kind", kind.Name), zap.String("field", fieldName), zap.Bool("unique", unique))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Index created successfully",
		"kind":    kind.Name,
		"field":   fieldName,
		"unique":  unique,
	})
}
