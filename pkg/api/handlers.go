package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adfharrison1/go-tours/pkg/content"
)

// maxBodyBytes caps request bodies; batches of 1000 documents fit easily
const maxBodyBytes = 16 << 20

// maxBatchSize is the most documents or operations one batch request may carry
const maxBatchSize = 1000

// Handler provides the admin JSON API over the content store
type Handler struct {
	store  *content.Store
	logger *zap.Logger
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(store *content.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		logger: logger.Named("api"),
	}
}

// kind resolves the {kind} route variable, writing a 404 when it is unknown
func (h *Handler) kind(w http.ResponseWriter, r *http.Request) (*content.Kind, bool) {
	name := mux.Vars(r)["kind"]
	kind, ok := content.Lookup(name)
	if !ok {
		h.logger.Warn("Unknown kind", zap.String("kind", name))
		WriteJSONError(w, http.StatusNotFound, "unknown kind: "+name)
		return nil, false
	}
	return kind, true
}
