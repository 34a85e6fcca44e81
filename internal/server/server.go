// Package server provides the HTTP API for kensaku.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/session"
	"github.com/hyperjump/kensaku/internal/storage"
)

// Server is the HTTP server for the kensaku API.
type Server struct {
	session *session.Session
	archive storage.Archive
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server over an open session. archive may be nil, in
// which case run endpoints respond 501.
func NewServer(sess *session.Session, archive storage.Archive, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session: sess,
		archive: archive,
		logger:  logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	if m := s.session.Metrics; m != nil {
		r.Use(m.Middleware())
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/terms/{term}", s.handleTerm)
	r.Get("/api/v1/documents/{docno}", s.handleGetDocument)
	r.Get("/api/v1/documents/{docno}/vector", s.handleDocumentVector)
	r.Get("/api/v1/documents/{docno}/text", s.handleDocumentText)
	r.Get("/api/v1/runs", s.handleListRuns)
	r.Get("/api/v1/runs/{run}/{query}", s.handleGetRun)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.session.Config.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
