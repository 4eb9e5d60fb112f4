// Package http serves the quotes dashboard over HTTP using Gin: the server
// lifecycle and the router that wires middleware, pages and health endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-saver/internal/platform/config"
)

// Server is the dashboard's HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig
	logger     *slog.Logger

	// bound is the listener address once Start has bound it.
	bound atomic.Value
}

// New creates a dashboard server. Routes are added to Engine before Start.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(maxBodySize(cfg.MaxRequestSize))

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           engine,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		config: cfg,
		logger: logger,
	}
}

// Engine returns the underlying Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Config returns the server configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.config
}

// OnShutdown registers fn to run when Shutdown begins, alongside draining
// in-flight requests. The dashboard uses it to close session views.
func (s *Server) OnShutdown(fn func()) {
	s.httpServer.RegisterOnShutdown(fn)
}

// Start binds the listen address and serves in the background. A bind
// failure is returned directly; later serve failures arrive on the channel,
// which is closed once the server stops.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	s.bound.Store(ln.Addr().String())

	s.logger.Info("dashboard listening",
		slog.String("addr", ln.Addr().String()),
		slog.Duration("read_timeout", s.config.ReadTimeout),
		slog.Duration("write_timeout", s.config.WriteTimeout),
	)

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	return errCh, nil
}

// Run serves until ctx is cancelled or serving fails, then drains in-flight
// requests for at most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	serveErr, err := s.Start()
	if err != nil {
		return err
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.Any("cause", context.Cause(ctx)))
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(drainCtx); err != nil {
		return err
	}

	if err, ok := <-serveErr; ok {
		return err
	}

	return nil
}

// Shutdown stops accepting connections and waits for active requests until
// ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	start := time.Now()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("draining dashboard server: %w", err)
	}

	s.logger.Info("dashboard server stopped", slog.Duration("drained_in", time.Since(start)))

	return nil
}

// Addr returns the bound address once started, and the configured one before.
func (s *Server) Addr() string {
	if addr, ok := s.bound.Load().(string); ok {
		return addr
	}

	return s.httpServer.Addr
}

// maxBodySize caps request bodies; form posts and view API calls are small.
func maxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
