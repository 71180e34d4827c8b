package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bookwith/reader-core/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Server runs the status API until its context is cancelled.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a server for handler on the configured port. Port 0
// picks a free port.
func NewServer(cfg config.StatusConfig, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "status_server"),
	}
}

// Run listens and serves until ctx is done, then shuts down gracefully.
// ready, when non-nil, receives the bound address once listening.
func (s *Server) Run(ctx context.Context, ready chan<- string) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	addr := ln.Addr().String()
	if ready != nil {
		ready <- addr
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting status server", "addr", addr)
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down status server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown failed: %w", err)
	}
	s.logger.Info("status server stopped")
	return nil
}
