// Package api exposes the chat application over HTTP.
//
// Endpoints:
//
//	POST /api/chat           - synchronous chat (genkit flow handler)
//	POST /api/chat/stream    - streaming chat (Server-Sent Events)
//	POST /api/documents      - upload and index PDFs (multipart)
//	GET  /api/documents      - list indexed documents
//	GET  /api/documents/stats - index statistics
//	DELETE /api/documents/{id} - remove a document from the index
//	POST /api/sessions       - create session
//	GET  /api/sessions       - list sessions
//	GET  /api/sessions/{id}  - session metadata
//	DELETE /api/sessions/{id} - delete session
//	GET  /api/sessions/{id}/messages - full conversation
//	DELETE /api/sessions/{id}/messages - clear conversation
//	GET  /api/sessions/{id}/summary - conversation summary
//	GET  /health             - liveness probe
//	GET  /ready              - readiness probe
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/medichat/medichat/internal/chat"
	"github.com/medichat/medichat/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout protects against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 60 * time.Second
	WriteTimeout = 120 * time.Second
	IdleTimeout  = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health    *HealthHandler
	sessions  *SessionHandler
	documents *DocumentHandler
	chat      *ChatHandler
}

// Config carries the server's handler dependencies.
type Config struct {
	Pinger    Pinger
	Extractor HealthChecker
	Sessions  SessionStore
	Documents DocumentStore
	Indexer   Indexer
	ChatFlow  *chat.Flow
	Logger    log.Logger
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(cfg Config) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    cfg.Logger,
		health:    NewHealthHandler(cfg.Pinger, cfg.Extractor, cfg.Logger),
		sessions:  NewSessionHandler(cfg.Sessions, cfg.Logger),
		documents: NewDocumentHandler(cfg.Documents, cfg.Indexer, cfg.Logger),
		chat:      NewChatHandler(cfg.ChatFlow, cfg.Logger),
	}

	s.health.RegisterRoutes(mux)
	s.sessions.RegisterRoutes(mux)
	s.documents.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery -> logging -> handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the server and blocks until ctx is canceled, then shuts
// down gracefully.
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
