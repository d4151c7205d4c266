// Package httpapi exposes the chat core over HTTP: session management,
// message exchanges and the provider configuration check, plus health and
// metrics endpoints.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hirebot-dev/hirebot/pkg/chat/config"
	"github.com/hirebot-dev/hirebot/pkg/chat/coordinator"
	"github.com/hirebot-dev/hirebot/pkg/chat/providers"
	"github.com/hirebot-dev/hirebot/pkg/chat/store"
)

// Server holds the HTTP surface's dependencies.
type Server struct {
	cfg         config.ServerConfig
	store       store.Store
	coordinator *coordinator.Coordinator
	registry    *providers.Registry
	creds       *config.Credentials
	gatherer    prometheus.Gatherer
	log         logr.Logger
	router      *mux.Router
	limiter     *rateLimiter
}

// NewServer creates the HTTP API and registers its routes.
func NewServer(cfg config.ServerConfig, st store.Store, coord *coordinator.Coordinator, registry *providers.Registry, creds *config.Credentials, gatherer prometheus.Gatherer, log logr.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		store:       st,
		coordinator: coord,
		registry:    registry,
		creds:       creds,
		gatherer:    gatherer,
		log:         log,
		router:      mux.NewRouter(),
	}
	if cfg.RateLimit.PerSecond > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.requireUser, s.rateLimit)
	api.HandleFunc("/providers", s.handleListProviders).Methods("GET")
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/messages", s.handleListMessages).Methods("GET")
	api.HandleFunc("/sessions/{id}/messages", s.handleSendMessage).Methods("POST")
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Build returns a configured http.Server bound to the server config.
func (s *Server) Build() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
