package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avacatalog/internal/config"
	"github.com/vyrodovalexey/avacatalog/internal/health"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/pipeline"
	"github.com/vyrodovalexey/avacatalog/internal/server/middleware"
	"github.com/vyrodovalexey/avacatalog/internal/upstream"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("server already started")

var releaseMode sync.Once

type lifecycle int

const (
	idle lifecycle = iota
	running
	stopped
)

// Server serves the products endpoint and, optionally, the health endpoints.
type Server struct {
	cfg      config.ServerConfig
	engine   *gin.Engine
	products *ProductsHandler

	logger      observability.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	rateLimiter *middleware.RateLimiter
	health      *health.Checker

	mu    sync.Mutex
	state lifecycle
	srv   *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger logs requests and lifecycle events to logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithTracer opens a span per request.
func WithTracer(tracer *observability.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// WithRateLimiter guards the products route with rl.
func WithRateLimiter(rl *middleware.RateLimiter) Option {
	return func(s *Server) { s.rateLimiter = rl }
}

// WithHealthChecker serves /live, /health and /ready from checker.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) { s.health = checker }
}

// New returns a Server answering product requests with records from
// fetcher run through p.
func New(cfg config.ServerConfig, fetcher upstream.Fetcher, p *pipeline.Pipeline, opts ...Option) *Server {
	releaseMode.Do(func() { gin.SetMode(gin.ReleaseMode) })

	if cfg.ProductsPath == "" {
		cfg.ProductsPath = config.DefaultProductsPath
	}

	s := &Server{cfg: cfg, logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.products = NewProductsHandler(fetcher, p, s.logger)
	s.engine = s.newEngine()
	return s
}

// Handler is the routed gin engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr is the configured host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port))
}

// Start binds the listener and serves until Stop. It returns nil after a
// graceful stop, and immediately when Stop already ran or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == running:
		s.mu.Unlock()
		return ErrAlreadyStarted
	case s.state == stopped || ctx.Err() != nil:
		s.mu.Unlock()
		return nil
	}

	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout.Duration(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout.Duration(),
		WriteTimeout:      s.cfg.WriteTimeout.Duration(),
		IdleTimeout:       s.cfg.IdleTimeout.Duration(),
	}
	s.srv = srv
	s.state = running
	s.mu.Unlock()

	s.logger.Info("catalog server listening",
		observability.String("address", ln.Addr().String()),
		observability.String("products_path", s.cfg.ProductsPath),
	)

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.state = stopped
		s.mu.Unlock()
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires. A Server that never
// started is marked stopped so a later Start returns at once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	prev, srv := s.state, s.srv
	s.state = stopped
	s.mu.Unlock()

	if prev != running {
		return nil
	}

	s.logger.Info("catalog server draining")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("catalog server stopped")
	return nil
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == running
}
