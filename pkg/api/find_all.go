package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
	"github.com/mattbab/LiteDB/pkg/expr"
)

// HandleFindAll handles GET requests to list documents, optionally filtered
// by query parameters treated as field equality conditions.
func (h *Handler) HandleFindAll(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleFindAll called for collection '%s'", collName)

	filter, err := filterFromQuery(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := h.db.Find(collName, filter)
	if err != nil {
		log.Printf("ERROR: Find failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	raw, err := data.EncodeDocuments(docs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	log.Printf("INFO: Found %d documents in collection '%s'", len(docs), collName)
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func filterFromQuery(r *http.Request) (expr.Filter, error) {
	var filters []expr.Filter
	for name, values := range r.URL.Query() {
		path, err := expr.NewPath("$." + name)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			filters = append(filters, expr.Eq(path, data.ParseID(v)))
		}
	}
	return expr.And(filters...), nil
}
