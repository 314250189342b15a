// Package api serves the conductor over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	commonmw "sregrade/internal/common/http/middleware"
	"sregrade/internal/conductor/controller"
	"sregrade/internal/conductor/metrics"
	"sregrade/pkg/utils/logger"
	"sregrade/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server runs the conductor API until shutdown is requested.
type Server struct {
	cfg      Config
	http     *http.Server
	shutdown chan struct{}
	once     sync.Once
}

// NewRouter wires the conductor routes.
func NewRouter(grader controller.Grader, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.IDs())
	router.Use(commonmw.RequestLogger())

	h := controller.NewConductorController(grader)
	router.POST("/submit", h.Submit)
	router.GET("/status", h.GetStatus)
	router.GET("/get_app", h.GetApp)
	router.GET("/get_problem", h.GetProblem)
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.HandleMethodNotAllowed = true
	router.NoRoute(response.NotFound)
	router.NoMethod(response.MethodNotAllowed)
	return router
}

// NewServer creates a server bound to the given conductor. It does not listen until Run.
func NewServer(cfg Config, grader controller.Grader, m *metrics.Metrics) *Server {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(grader, m),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		shutdown: make(chan struct{}),
	}
}

// Handler returns the router, for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run listens on the configured address and blocks until ctx is done, RequestShutdown is
// called, or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "conductor api started", zap.String("addr", listener.Addr().String()))
		errCh <- s.http.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info(ctx, "context done, stopping conductor api")
	case <-s.shutdown:
		logger.Info(ctx, "shutdown requested, stopping conductor api")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// RequestShutdown makes Run return. It is safe to call any number of times from any goroutine.
func (s *Server) RequestShutdown() {
	s.once.Do(func() {
		close(s.shutdown)
	})
}
