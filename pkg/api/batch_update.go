package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/engine"
)

const maxBatchOperations = 1000

// BatchUpdateRequest represents the request body for batch update operations
type BatchUpdateRequest struct {
	Documents []json.RawMessage `json:"documents"`
}

// BatchUpdateResponse represents the response for batch update operations
type BatchUpdateResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UpdatedCount int    `json:"updated_count"`
	Collection   string `json:"collection"`
}

// HandleBatchUpdate handles PATCH requests to update multiple documents in
// one transaction. Each document must carry its _id; documents with no
// stored match are skipped, and any failure rolls the whole batch back.
func (h *Handler) HandleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleBatchUpdate called for collection '%s'", collName)

	var req BatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "no documents provided")
		return
	}
	if len(req.Documents) > maxBatchOperations {
		log.Printf("ERROR: Too many operations for batch update: %d", len(req.Documents))
		WriteJSONError(w, http.StatusBadRequest, "maximum 1000 documents allowed per batch")
		return
	}

	docs := make([]*domain.Document, 0, len(req.Documents))
	for i, raw := range req.Documents {
		doc, err := data.DecodeDocument(raw)
		if err != nil {
			log.Printf("ERROR: Decoding document %d failed: %v", i, err)
			WriteJSONError(w, http.StatusBadRequest, "invalid document in batch")
			return
		}
		docs = append(docs, doc)
	}

	count, err := h.db.UpdateAll(collName, engine.NewSliceSource(docs...))
	if err != nil {
		log.Printf("ERROR: Batch update failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Batch update completed for collection '%s', updated %d of %d",
		collName, count, len(docs))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BatchUpdateResponse{
		Success:      true,
		Message:      "batch update completed",
		UpdatedCount: count,
		Collection:   collName,
	})
}
