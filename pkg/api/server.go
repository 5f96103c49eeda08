// Package api is the control plane: an HTTP server that accepts artifact
// uploads and answers status queries, translating them into lifecycle
// manager calls.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/slipway-sh/slipway/internal/logger"
)

// Server provides the control-plane HTTP server.
//
// Endpoints:
//   - POST /upload: Deploy an uploaded artifact
//   - GET /status: Current deployment status
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//
// The server supports graceful shutdown with a configurable timeout.
type Server struct {
	server       *http.Server
	config       Config
	shutdownOnce sync.Once
}

// NewServer creates a new control-plane HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
func NewServer(config Config, d Deployer) *Server {
	config.applyDefaults()

	router := NewRouter(d, config.Port, time.Now())

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
	}
}

// Start starts the control-plane server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("control plane listening", "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("control plane shutdown signal received")
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("control plane failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the control-plane server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("control plane shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("control plane shutdown error: %w", err)
			logger.Error("control plane shutdown error", "error", err)
		} else {
			logger.Info("control plane stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
