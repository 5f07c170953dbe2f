package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Collection operations
	router.HandleFunc("/collections/{coll}", h.HandleCreateCollection).Methods("PUT")
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")

	// Batch operations
	router.HandleFunc("/collections/{coll}/batch", h.HandleBatchUpdate).Methods("PATCH")

	// Query-driven updates
	router.HandleFunc("/collections/{coll}/update", h.HandleUpdateByQuery).Methods("POST")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleUpdateById).Methods("PUT")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")

	// Find with optional filtering (query parameters)
	router.HandleFunc("/collections/{coll}/find", h.HandleFindAll).Methods("GET")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleCreateIndex).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
