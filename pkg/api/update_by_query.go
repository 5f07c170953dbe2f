package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/data"
	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
)

// UpdateByQueryRequest represents the request body for query-driven updates.
// Set holds the fields to produce for each matching document, Filter the
// equality conditions a document must meet, and Mode either "merge"
// (default) or "replace".
type UpdateByQueryRequest struct {
	Set    json.RawMessage `json:"set"`
	Filter json.RawMessage `json:"filter,omitempty"`
	Mode   string          `json:"mode,omitempty"`
}

// UpdateByQueryResponse represents the response for query-driven updates
type UpdateByQueryResponse struct {
	Success      bool   `json:"success"`
	UpdatedCount int    `json:"updated_count"`
	Collection   string `json:"collection"`
}

// HandleUpdateByQuery handles POST requests that rewrite every document
// matching a filter
func (h *Handler) HandleUpdateByQuery(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]

	log.Printf("INFO: handleUpdateByQuery called for collection '%s'", collName)

	var req UpdateByQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Set) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "missing set document")
		return
	}

	mode, err := domain.ParseUpdateMode(req.Mode)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	setDoc, err := data.DecodeDocument(req.Set)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid set document")
		return
	}
	modify := docLiteral(setDoc)

	filter, err := filterFromJSON(req.Filter)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.db.UpdateByQuery(collName, modify, mode, filter)
	if err != nil {
		log.Printf("ERROR: Update by query failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Update by query completed for collection '%s', updated %d", collName, count)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UpdateByQueryResponse{
		Success:      true,
		UpdatedCount: count,
		Collection:   collName,
	})
}

// docLiteral turns a decoded set document into a document-literal expression
func docLiteral(doc *domain.Document) expr.Expression {
	fields := make([]expr.DocField, 0, doc.Len())
	for _, name := range doc.Fields() {
		v, _ := doc.Get(name)
		fields = append(fields, expr.F(name, expr.Value(v)))
	}
	return expr.Doc(fields...)
}

// filterFromJSON builds an equality conjunction from a JSON object of
// field/value pairs. A missing filter matches everything.
func filterFromJSON(raw json.RawMessage) (expr.Filter, error) {
	if len(raw) == 0 {
		return expr.All(), nil
	}
	doc, err := data.DecodeDocument(raw)
	if err != nil {
		return nil, domain.NewInvalidArgument("invalid filter document")
	}
	filters := make([]expr.Filter, 0, doc.Len())
	for _, name := range doc.Fields() {
		v, _ := doc.Get(name)
		path, err := expr.NewPath("$." + name)
		if err != nil {
			return nil, err
		}
		filters = append(filters, expr.Eq(path, v))
	}
	return expr.And(filters...), nil
}
