// Package api wires the HTTP surface: route registration, request
// validation, and translation between transport and the services.
package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/keebreview/keebreview/pkg/httputil"
	"github.com/keebreview/keebreview/pkg/middleware"
	"github.com/keebreview/keebreview/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	router  *mux.Router
	db      *sql.DB
	metrics *observability.Metrics
	logger  *observability.Logger
}

// RouteRegistrar registers a handler group's routes on a router.
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewServer creates the API server and registers all handler groups.
// metrics may be nil, which disables the /metrics endpoint and the
// per-request instrumentation.
func NewServer(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics, registrars ...RouteRegistrar) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		db:      db,
		metrics: metrics,
		logger:  logger,
	}

	if metrics != nil {
		s.router.Use(middleware.Metrics(metrics))
		s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	s.router.HandleFunc("/healthz", s.healthz).Methods("GET")

	for _, registrar := range registrars {
		registrar.RegisterRoutes(s.router)
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// healthz reports liveness plus database reachability.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.WithError(err).Error("health check: database unreachable")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
