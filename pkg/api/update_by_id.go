package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
	"github.com/mattbab/LiteDB/pkg/domain"
)

// HandleUpdateById handles PUT requests to rewrite a specific document in
// place. The body is the complete new document; its primary key comes from
// the URL, and a body carrying a different _id is rejected.
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleUpdateById called for collection '%s', document '%s'", collName, docId)

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

	id := data.ParseID(docId)
	if bodyID, ok := doc.ID(); ok && !bodyID.IsNull() && !bodyID.Equal(id) {
		WriteJSONError(w, http.StatusBadRequest, "document _id does not match URL")
		return
	}
	doc.Set(domain.IDField, id)

	updated, err := h.db.Update(collName, doc)
	if err != nil {
		log.Printf("ERROR: Update failed for document '%s' in collection '%s': %v", docId, collName, err)
		writeEngineError(w, err)
		return
	}
	if !updated {
		WriteJSONError(w, http.StatusNotFound, "document not found")
		return
	}

	log.Printf("INFO: Updated document '%s' in collection '%s'", docId, collName)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"updated": true})
}
