// Package api exposes the task ledger over HTTP: totals, session
// listings and a live change stream so concurrent viewers stay
// consistent without polling.
package api

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/avanti-suite/timekeep/internal/store"
)

// Server bundles the handlers' dependencies.
type Server struct {
	store *store.Store
	log   *logrus.Logger
}

// NewServer builds the API server around a store.
func NewServer(st *store.Store, log *logrus.Logger) *Server {
	return &Server{store: st, log: log}
}

// Router creates and configures the router with all API endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLog)

	r.HandleFunc("/healthz", s.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tasks", s.ListTasks).Methods("GET")
	api.HandleFunc("/tasks/{id}", s.GetTask).Methods("GET")
	api.HandleFunc("/tasks/{id}/total", s.GetTaskTotal).Methods("GET")
	api.HandleFunc("/tasks/{id}/sessions", s.GetTaskSessions).Methods("GET")
	api.HandleFunc("/tasks/{id}/events", s.StreamTaskEvents).Methods("GET")

	return r
}
