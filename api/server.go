// Package api provides the HTTP REST API for answerdock.
//
// Endpoints:
//
//	POST /api/chat            - ask a question, get a cited answer
//	POST /api/ingest          - ingest a document's text
//	POST /api/sessions/reset  - discard a session's memory
//	GET  /health              - liveness probe
//	GET  /ready               - readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - health.go: health check endpoints
//   - chat.go: question answering endpoint
//   - ingest.go: document ingestion endpoint
//   - session.go: session reset endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/answerdock/answerdock/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generation can take most of the model timeout, so this is long.
	WriteTimeout = 180 * time.Second

	// IdleTimeout is the maximum keep-alive wait between requests.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	chat    *ChatHandler
	ingest  *IngestHandler
	session *SessionHandler
}

// NewServer creates a server with all routes registered.
func NewServer(engine Answerer, ingestSvc Ingester, sessions SessionResetter, ready ReadyChecker, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		logger:  logger,
		health:  NewHealthHandler(ready, logger),
		chat:    NewChatHandler(engine, logger),
		ingest:  NewIngestHandler(ingestSvc, logger),
		session: NewSessionHandler(sessions, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.ingest.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
