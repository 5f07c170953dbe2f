package api

import (
	"encoding/json"
	"net/http"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// writeEngineError maps a database error onto the right HTTP status
func writeEngineError(w http.ResponseWriter, err error) {
	WriteJSONError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch domain.ErrCode(err) {
	case domain.CodeNotFound, domain.CodeCollectionNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidArgument, domain.CodeInvalidDataType, domain.CodeInvalidUpdateField:
		return http.StatusBadRequest
	case domain.CodeDuplicateKey, domain.CodeIndexExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
