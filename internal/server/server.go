// Package server is the HTTP boundary: routing, request decoding, and
// the mapping from the core's typed errors to status codes. No business
// rules live here.
package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dropserve/internal/auth"
	"dropserve/internal/drop"
	"dropserve/internal/logging"
	"dropserve/internal/storage"
)

// Config wires the server's collaborators together.
type Config struct {
	Addr    string
	Drops   *drop.Service
	Users   *auth.UserStore
	Tokens  *auth.TokenManager
	Backend storage.Backend
	DB      *sql.DB
	Log     *logging.Logger
	Metrics *Metrics
}

// Server owns the HTTP listener.
type Server struct {
	httpServer *http.Server
}

// New builds the router and middleware chain.
func New(cfg Config) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(cfg.Log, cfg.Metrics))
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", cfg.healthHandler())
	r.Get("/metrics", cfg.metricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", cfg.loginHandler())

		r.Group(func(r chi.Router) {
			r.Use(cfg.identityMiddleware)

			r.Get("/auth/me", cfg.meHandler())

			r.Post("/drops", cfg.createDropHandler())
			r.Get("/drops", cfg.listDropsHandler())
			r.Get("/drops/{slug}", cfg.getDropHandler())
			r.Patch("/drops/{slug}", cfg.updateDropHandler())
			r.Delete("/drops/{slug}", cfg.deleteDropHandler())
			r.Get("/drops/{slug}/file", cfg.streamDropHandler())
			r.Head("/drops/{slug}/check", cfg.checkSlugHandler())
		})
	})

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// Handler exposes the router, mainly for tests that mount the full
// middleware chain without a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown or a listener error.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
