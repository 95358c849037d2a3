package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// HandleFindAllWithStream handles GET requests to stream documents of a kind
// as one JSON array. Pagination parameters are ignored; every matching
// document is written in _id order.
func (h *Handler) HandleFindAllWithStream(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	h.logger.Debug("handleFindAllWithStream called", zap.String("kind", kind.Name))

	filter := parseFilter(kind, r.URL.Query())
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	docChan, err := h.store.DB().FindAllStream(ctx, kind.Collection, filter)
	if err != nil {
		h.logger.Error("Stream failed", zap.String("kind", kind.Name), zap.Error(err))
		WriteStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	if _, err := w.Write([]byte("[\n")); err != nil {
		return
	}

	docCount := 0
	for doc := range docChan {
		docJSON, err := json.Marshal(doc)
		if err != nil {
			h.logger.Error("Failed to marshal document", zap.String("id", doc.ID()), zap.Error(err))
			continue
		}
		if docCount > 0 {
			if _, err := w.Write([]byte(",\n")); err != nil {
				return
			}
		}
		if _, err := w.Write(docJSON); err != nil {
			h.logger.Warn("Failed to write to response", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		docCount++
	}

	w.Write([]byte("\n]"))
	h.logger.Debug("Streamed documents", zap.String("kind", kind.Name), zap.Int("count", docCount))
}
