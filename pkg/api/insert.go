package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
)

// HandleCreateCollection handles PUT requests to create an empty collection
func (h *Handler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleCreateCollection called for collection '%s'", collName)

	if err := h.db.CreateCollection(collName); err != nil {
		log.Printf("ERROR: Create failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// HandleInsert handles POST requests to insert a document into a collection
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleInsert called for collection '%s'", collName)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	doc, err := data.DecodeDocument(body)
	if err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.db.Insert(collName, doc); err != nil {
		log.Printf("ERROR: Insert failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	id, _ := doc.ID()
	log.Printf("INFO: Insert successful for collection '%s'", collName)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id.String()})
}
