package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
)

// HandleGetById handles GET requests to retrieve a specific document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleGetById called for collection '%s', document '%s'", collName, docId)

	doc, err := h.db.FindByID(collName, data.ParseID(docId))
	if err != nil {
		log.Printf("ERROR: Document '%s' not found in collection '%s': %v", docId, collName, err)
		writeEngineError(w, err)
		return
	}

	raw, err := data.EncodeDocument(doc)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}
