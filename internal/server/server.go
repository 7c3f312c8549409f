// Package server exposes the manager's HTTP API.
//
// The surface is deliberately thin: handlers validate input, resolve the
// caller's checklist, and delegate to the store or the engine. All run
// semantics live in internal/engine.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/store"
)

// Server routes the management API.
type Server struct {
	store  *store.Store
	engine *engine.Engine
	log    *slog.Logger
	router *mux.Router
}

// New creates a Server and wires its routes.
func New(s *store.Store, eng *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	srv := &Server{
		store:  s,
		engine: eng,
		log:    log,
		router: mux.NewRouter(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)
	r.Use(s.authenticate)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api-keys", s.handleAPIKeysCreate).Methods(http.MethodPost)
	r.HandleFunc("/api-keys", s.requireAPIKey(s.handleAPIKeysDelete)).Methods(http.MethodDelete)

	r.HandleFunc("/v1/checklists", s.requireAPIKey(s.handleChecklistsList)).Methods(http.MethodGet)
	r.HandleFunc("/v1/checklists", s.requireAPIKey(s.handleChecklistsCreate)).Methods(http.MethodPost)
	r.HandleFunc("/v1/checklists/{id:[0-9]+}", s.requireAPIKey(s.handleChecklistsUpdate)).Methods(http.MethodPut)
	r.HandleFunc("/v1/checklists/{id:[0-9]+}", s.requireAPIKey(s.handleChecklistsDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/v1/checklists/{id:[0-9]+}/run", s.requireAPIKey(s.handleChecklistsRun)).Methods(http.MethodPost)
	r.HandleFunc("/v1/checklists/{id:[0-9]+}/snapshots", s.requireAPIKey(s.handleSnapshotsSeed)).Methods(http.MethodPost)
	r.HandleFunc("/v1/checklists/{id:[0-9]+}/schedules", s.requireAPIKey(s.handleSchedulesCreate)).Methods(http.MethodPost)
	r.HandleFunc("/v1/checklists/{id:[0-9]+}/schedules/{scheduleId:[0-9]+}", s.requireAPIKey(s.handleSchedulesDelete)).Methods(http.MethodDelete)

	r.HandleFunc("/v1/webhooks", s.requireAPIKey(s.handleWebhooksCreate)).Methods(http.MethodPost)
	r.HandleFunc("/v1/webhooks/{id:[0-9]+}", s.requireAPIKey(s.handleWebhooksDelete)).Methods(http.MethodDelete)

	r.NotFoundHandler = s.withLogging(http.HandlerFunc(s.handleNotFound))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errNotFound)
}
