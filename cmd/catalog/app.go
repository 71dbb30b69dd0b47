package main

import (
	"net/http"

	"github.com/vyrodovalexey/avacatalog/internal/config"
	"github.com/vyrodovalexey/avacatalog/internal/health"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/pipeline"
	"github.com/vyrodovalexey/avacatalog/internal/server"
	"github.com/vyrodovalexey/avacatalog/internal/server/middleware"
	"github.com/vyrodovalexey/avacatalog/internal/upstream"
)

type application struct {
	config        *config.CatalogConfig
	logger        observability.Logger
	server        *server.Server
	client        *upstream.Client
	healthChecker *health.Checker
	metrics       *observability.Metrics
	metricsServer *http.Server
	tracer        *observability.Tracer
	rateLimiter   *middleware.RateLimiter
}

// buildApplication wires the catalog components from cfg. The service
// logger is rebuilt from the logging section of cfg.
func buildApplication(cfg *config.CatalogConfig, bootstrap observability.Logger) (*application, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})
	if err != nil {
		return nil, err
	}
	observability.SetGlobalLogger(logger)
	bootstrap.Debug("service logger configured",
		observability.String("level", cfg.Observability.Logging.Level),
		observability.String("output", cfg.Observability.Logging.Output),
	)

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:    cfg.Observability.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(cfg.Observability.Metrics.Namespace)
	metrics.InitVecMetrics()
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	pipelineMetrics := pipeline.NewMetrics(cfg.Observability.Metrics.Namespace)
	pipelineMetrics.MustRegister(metrics.Registry())
	pipelineMetrics.Init()

	p := pipeline.New(cfg.Tables(),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipelineMetrics),
	)

	clientOpts := []upstream.Option{
		upstream.WithLogger(logger),
		upstream.WithMetrics(metrics),
	}
	if tracer.Enabled() {
		clientOpts = append(clientOpts, upstream.WithTracer(tracer))
	}

	healthChecker := health.NewChecker(version)
	healthChecker.RegisterCheck(health.CheckUpstreamConfigured,
		health.UpstreamConfiguredCheck(cfg.Upstream.URL))

	if cb := cfg.Upstream.CircuitBreaker; cb != nil && cb.Enabled {
		breaker := upstream.NewCircuitBreaker("upstream", upstream.BreakerSettings{
			Threshold:        cb.Threshold,
			Timeout:          cb.Timeout.Duration(),
			HalfOpenRequests: cb.HalfOpenRequests,
		},
			upstream.WithBreakerLogger(logger),
			upstream.WithBreakerTracer(tracer),
			upstream.WithBreakerStateCallback(metrics.SetCircuitBreakerState),
		)
		clientOpts = append(clientOpts, upstream.WithCircuitBreaker(breaker))
		healthChecker.RegisterCheck(health.CheckUpstreamBreaker,
			health.CircuitBreakerCheck(breaker.State))
	}

	client := upstream.NewClient(cfg.Upstream.URL, clientOpts...)

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithHealthChecker(healthChecker),
	}
	if tracer.Enabled() {
		serverOpts = append(serverOpts, server.WithTracer(tracer))
	}

	var rateLimiter *middleware.RateLimiter
	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		rateLimiter = middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst, rl.PerClient,
			middleware.WithRateLimiterLogger(logger),
			middleware.WithRateLimiterMetrics(metrics),
		)
		serverOpts = append(serverOpts, server.WithRateLimiter(rateLimiter))
	}

	srv := server.New(cfg.Server, client, p, serverOpts...)

	return &application{
		config:        cfg,
		logger:        logger,
		server:        srv,
		client:        client,
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		rateLimiter:   rateLimiter,
	}, nil
}
