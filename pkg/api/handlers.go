package api

import (
	"github.com/mattbab/LiteDB/pkg/engine"
)

// Handler provides HTTP handlers for the database API
type Handler struct {
	db *engine.Engine
}

// NewHandler creates a new API handler around the database engine
func NewHandler(db *engine.Engine) *Handler {
	return &Handler{db: db}
}
