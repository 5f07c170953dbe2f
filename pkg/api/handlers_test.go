package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattbab/LiteDB/pkg/engine"
	"github.com/mattbab/LiteDB/pkg/storage"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	st, err := storage.NewEngine(storage.WithDataDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	router := mux.NewRouter()
	NewHandler(engine.New(st)).RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInsertAndGetById(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana", "age": 30}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, "GET", "/collections/users/documents/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ana", got["name"])
	assert.Equal(t, float64(30), got["age"])
}

func TestInsertGeneratesID(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, "POST", "/collections/users", `{"name": "no id"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])

	rec = doRequest(t, router, "GET", "/collections/users/documents/"+resp["id"], "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetByIdNotFound(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "PUT", "/collections/users", "")

	rec := doRequest(t, router, "GET", "/collections/users/documents/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, "GET", "/collections/nope/documents/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateById(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana"}`)

	rec := doRequest(t, router, "PUT", "/collections/users/documents/1", `{"name": "anita"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "GET", "/collections/users/documents/1", "")
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "anita", got["name"])
}

func TestUpdateByIdMismatchedBody(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana"}`)

	rec := doRequest(t, router, "PUT", "/collections/users/documents/1", `{"_id": 2, "name": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateByIdNotFound(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "PUT", "/collections/users", "")

	rec := doRequest(t, router, "PUT", "/collections/users/documents/42", `{"name": "ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchUpdate(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana"}`)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 2, "name": "bea"}`)

	rec := doRequest(t, router, "PATCH", "/collections/users/batch",
		`{"documents": [{"_id": 1, "name": "ana2"}, {"_id": 2, "name": "bea2"}, {"_id": 9, "name": "ghost"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchUpdateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.UpdatedCount)
}

func TestBatchUpdateAtomicFailure(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana"}`)

	// second document carries a null _id, so the whole batch must roll back
	rec := doRequest(t, router, "PATCH", "/collections/users/batch",
		`{"documents": [{"_id": 1, "name": "mutated"}, {"_id": null}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, "GET", "/collections/users/documents/1", "")
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ana", got["name"])
}

func TestBatchUpdateValidation(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "PUT", "/collections/users", "")

	rec := doRequest(t, router, "PATCH", "/collections/users/batch", `{"documents": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, "PATCH", "/collections/users/batch", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateByQueryMergeEndpoint(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana", "age": 30}`)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 2, "name": "bea", "age": 40}`)

	rec := doRequest(t, router, "POST", "/collections/users/update",
		`{"set": {"active": true}, "filter": {"age": 40}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UpdateByQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.UpdatedCount)

	rec = doRequest(t, router, "GET", "/collections/users/documents/2", "")
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["active"])
	assert.Equal(t, "bea", got["name"])
}

func TestUpdateByQueryReplaceEndpoint(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana", "age": 30}`)

	rec := doRequest(t, router, "POST", "/collections/users/update",
		`{"set": {"note": "wiped"}, "mode": "replace"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "GET", "/collections/users/documents/1", "")
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "wiped", got["note"])
	assert.NotContains(t, got, "name")
	assert.Equal(t, float64(1), got["_id"])
}

func TestUpdateByQueryBadMode(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "PUT", "/collections/users", "")

	rec := doRequest(t, router, "POST", "/collections/users/update",
		`{"set": {"a": 1}, "mode": "upsert"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFindAllWithFilter(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana", "age": 30}`)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 2, "name": "bea", "age": 40}`)

	rec := doRequest(t, router, "GET", "/collections/users/find?name=bea", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var docs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "bea", docs[0]["name"])

	rec = doRequest(t, router, "GET", "/collections/users/find", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	assert.Len(t, docs, 2)
}

func TestDeleteById(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "name": "ana"}`)

	rec := doRequest(t, router, "DELETE", "/collections/users/documents/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, "DELETE", "/collections/users/documents/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateIndexEndpoint(t *testing.T) {
	router := newTestRouter(t)
	doRequest(t, router, "POST", "/collections/users", `{"_id": 1, "tags": ["go", "db"]}`)

	rec := doRequest(t, router, "POST", "/collections/users/indexes",
		`{"name": "idx_tags", "path": "$.tags[*]"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, "POST", "/collections/users/indexes", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}
