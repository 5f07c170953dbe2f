package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// CreateIndexRequest represents the request body for index creation
type CreateIndexRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// HandleCreateIndex handles POST requests to create a secondary index over a
// field path, e.g. {"name": "idx_tags", "path": "$.tags[*]"}
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	var req CreateIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Path == "" {
		WriteJSONError(w, http.StatusBadRequest, "index name and path are required")
		return
	}

	log.Printf("INFO: handleCreateIndex called for collection '%s', index '%s'", collName, req.Name)

	if err := h.db.EnsureIndex(collName, req.Name, req.Path); err != nil {
		log.Printf("ERROR: Create index failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Created index '%s' on collection '%s'", req.Name, collName)
	w.WriteHeader(http.StatusCreated)
}
