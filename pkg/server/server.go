package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mattbab/LiteDB/pkg/api"
	"github.com/mattbab/LiteDB/pkg/engine"
	"github.com/mattbab/LiteDB/pkg/storage"
)

// Server wires the database engine to its HTTP API.
type Server struct {
	router *mux.Router
	db     *engine.Engine
}

// NewServer creates a new instance of Server.
func NewServer(options ...storage.Option) (*Server, error) {
	st, err := storage.NewEngine(options...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: mux.NewRouter(),
		db:     engine.New(st),
	}
	api.NewHandler(s.db).RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return s, nil
}

// requestLoggerMiddleware logs the method, URL path, and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s took %s", r.Method, r.URL.Path, elapsed)
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// DB exposes the database engine.
func (s *Server) DB() *engine.Engine {
	return s.db
}

// StartBackgroundWorkers starts the periodic checkpoint loop.
func (s *Server) StartBackgroundWorkers() {
	s.db.Storage().StartBackgroundWorkers()
}

// Close stops background workers, checkpoints and releases the engine.
func (s *Server) Close() error {
	return s.db.Close()
}
