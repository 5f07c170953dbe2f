package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
)

// HandleDeleteById handles DELETE requests to remove a specific document by ID
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleDeleteById called for collection '%s', document '%s'", collName, docId)

	deleted, err := h.db.DeleteByID(collName, data.ParseID(docId))
	if err != nil {
		log.Printf("ERROR: Delete failed for document '%s' in collection '%s': %v", docId, collName, err)
		writeEngineError(w, err)
		return
	}
	if !deleted {
		WriteJSONError(w, http.StatusNotFound, "document not found")
		return
	}

	log.Printf("INFO: Deleted document '%s' from collection '%s'", docId, collName)
	w.WriteHeader(http.StatusNoContent)
}
