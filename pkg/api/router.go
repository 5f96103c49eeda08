package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/slipway-sh/slipway/internal/logger"
	"github.com/slipway-sh/slipway/pkg/deploy"
)

// Deployer is the slice of the lifecycle manager the control plane needs.
// Implemented by deploy.Manager.
type Deployer interface {
	Deploy(ctx context.Context, version string, archive io.Reader, port int, entrypoint string) (*deploy.Descriptor, error)
	Current() *deploy.Descriptor
	DeploymentsRoot() string
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - POST /upload - Deploy an uploaded artifact
//   - GET /status - Current deployment status
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//
// Everything else is a 404.
func NewRouter(d Deployer, uploadPort int, startedAt time.Time) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	h := newHandler(d, uploadPort, startedAt)

	r.Post("/upload", h.Upload)
	r.Get("/status", h.Status)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Liveness)
		r.Get("/ready", h.Readiness)
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger is a custom middleware that logs requests using the internal
// logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("control plane request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("control plane request completed", logArgs...)
		} else {
			logger.Info("control plane request completed", logArgs...)
		}
	})
}
