package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/avacatalog/internal/health"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/server/middleware"
)

const (
	metricsReadTimeout  = 10 * time.Second
	metricsWriteTimeout = 10 * time.Second
)

// serve runs the catalog and metrics listeners until ctx is cancelled or
// one of them fails, then shuts everything down.
func serve(ctx context.Context, app *application) error {
	logger := app.logger

	if app.rateLimiter != nil {
		app.rateLimiter.StartCleanup(middleware.DefaultCleanupInterval)
	}

	if m := app.config.Observability.Metrics; m.Enabled {
		app.metricsServer = newMetricsServer(m.Port, m.Path, app.metrics, app.healthChecker)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.server.Start(gctx)
	})

	if app.metricsServer != nil {
		g.Go(func() error {
			logger.Info("starting metrics server",
				observability.String("address", app.metricsServer.Addr),
				observability.String("metrics_path", app.config.Observability.Metrics.Path),
			)
			if err := app.metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", observability.NamedError("cause", context.Cause(gctx)))
		shutdown(app)
		return nil
	})

	return g.Wait()
}

// newMetricsServer exposes the registry and the health endpoints on a
// separate port.
func newMetricsServer(port int, path string, metrics *observability.Metrics, checker *health.Checker) *http.Server {
	engine := gin.New()
	engine.GET(path, gin.WrapH(metrics.Handler()))
	checker.Register(engine)

	return &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           engine,
		ReadTimeout:       metricsReadTimeout,
		ReadHeaderTimeout: metricsReadTimeout,
		WriteTimeout:      metricsWriteTimeout,
	}
}

// shutdown stops every component within the configured shutdown timeout.
// Failures are logged and do not stop the remaining steps.
func shutdown(app *application) {
	logger := app.logger
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	steps := []struct {
		name string
		stop func(context.Context) error
	}{
		{"http server", app.server.Stop},
		{"metrics server", func(ctx context.Context) error {
			if app.metricsServer == nil {
				return nil
			}
			return app.metricsServer.Shutdown(ctx)
		}},
		{"tracer", app.tracer.Shutdown},
		{"rate limiter", func(context.Context) error {
			if app.rateLimiter != nil {
				app.rateLimiter.Stop()
			}
			return nil
		}},
	}

	for _, step := range steps {
		if err := step.stop(ctx); err != nil {
			logger.Error("shutdown step failed",
				observability.String("component", step.name),
				observability.Error(err),
			)
		}
	}

	logger.Info("catalog stopped")
}
