package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "zipcsv/internal/errors"
	"zipcsv/internal/infrastructure"
	customMiddleware "zipcsv/internal/middleware"
)

// RouterConfig wires the ops endpoints
type RouterConfig struct {
	Logger    *slog.Logger
	Providers *infrastructure.OTelProviders
	Status    StatusSource
	StartTime time.Time
}

// NewRouter builds the ops router: /health, /version, /status and, when a
// Prometheus exporter is configured, /metrics.
func NewRouter(cfg RouterConfig) (chi.Router, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}

	errs := apierrors.NewErrorHandler(logger)
	otelMiddleware, err := customMiddleware.NewOTelMiddleware(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	health := NewHealthHandler(cfg.StartTime, logger)
	status := NewStatusHandler(cfg.Status, errs, logger)

	r := chi.NewRouter()
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	// RequestID → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(logger))
	r.Use(customMiddleware.Recoverer(errs))

	r.Get("/health", health.HealthCheck)
	r.Get("/version", health.Version)
	r.Get("/status", status.Status)

	if cfg.Providers != nil && cfg.Providers.PrometheusHTTP != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Providers.PrometheusHTTP)
	}

	return r, nil
}

// Server serves the ops router for the lifetime of a run
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	started  bool
	done     chan error
}

// NewServer binds addr and prepares the server. Use ":0" for an ephemeral port.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &Server{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		listener: ln,
		logger:   logger.With(slog.String("component", "ops_server")),
		done:     make(chan error, 1),
	}, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background
func (s *Server) Start(ctx context.Context) {
	s.started = true
	s.logger.InfoContext(ctx, "Ops server listening", slog.String("address", s.Addr()))
	go func() {
		err := s.server.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Ops server error", slog.String("error", err.Error()))
		}
		s.done <- err
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.started {
		return s.listener.Close()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
