package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/kinds", h.HandleKinds).Methods("GET")

	// Index operations; registered before the document routes so
	// "indexes" is never taken for a document id
	router.HandleFunc("/{kind}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/{kind}/indexes/{field}", h.HandleCreateIndex).Methods("POST")

	// Batch operations
	router.HandleFunc("/{kind}/batch", h.HandleBatchInsert).Methods("POST")
	router.HandleFunc("/{kind}/batch", h.HandleBatchUpdate).Methods("PATCH")

	// Find with optional filtering (query parameters)
	router.HandleFunc("/{kind}", h.HandleFindAll).Methods("GET")
	router.HandleFunc("/{kind}/stream", h.HandleFindAllWithStream).Methods("GET")
	router.HandleFunc("/{kind}", h.HandleInsert).Methods("POST")

	// Document operations (by ID)
	router.HandleFunc("/{kind}/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/{kind}/{id}", h.HandleUpdateById).Methods("PATCH") // Partial update
	router.HandleFunc("/{kind}/{id}", h.HandleReplaceById).Methods("PUT")  // Complete replacement
	router.HandleFunc("/{kind}/{id}", h.HandleDeleteById).Methods("DELETE")
}
