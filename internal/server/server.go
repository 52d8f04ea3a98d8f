// Package server exposes the benchmark cases over HTTP so that the load
// generator can drive both code paths under concurrent load.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wesleyorama2/throwbench/internal/cases"
	"github.com/wesleyorama2/throwbench/internal/validation"
)

// Route paths.
const (
	PathWith    = "/test/with"
	PathWithout = "/test/without"
	PathHealth  = "/healthz"
)

// Config contains server settings.
type Config struct {
	// Addr is the listen address (default ":5000")
	Addr string

	// ShutdownTimeout bounds graceful shutdown (default 5s)
	ShutdownTimeout time.Duration

	// Email is the input validated by both endpoints (default cases.InvalidEmail)
	Email string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":5000",
		ShutdownTimeout: 5 * time.Second,
		Email:           cases.InvalidEmail,
	}
}

// Server serves the two test endpoints.
type Server struct {
	config    Config
	validator *validation.Validator
	logger    *slog.Logger
	engine    *gin.Engine
}

// New builds the router. The validator is shared by all requests.
func New(config Config, v *validation.Validator, logger *slog.Logger) *Server {
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.Email == "" {
		config.Email = defaults.Email
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:    config,
		validator: v,
		logger:    logger,
	}

	engine := gin.New()
	engine.Use(
		RecoveryMiddleware(logger),
		CorrelationIDMiddleware(logger),
		AccessLogMiddleware(logger),
	)
	engine.GET(PathWith, s.WithException)
	engine.GET(PathWithout, s.WithoutException)
	engine.GET(PathHealth, s.Health)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
