// Package observability provides logging, metrics, and tracing
// for the catalog service.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("catalog request served",
//	    observability.String("path", "/api/products"),
//	    observability.Int("records", 12),
//	)
//
// # Metrics
//
// Prometheus metrics for HTTP requests, upstream fetches, the upstream
// circuit breaker and rate limiting live in a private registry:
//
//	metrics := observability.NewMetrics("catalog")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with OTLP gRPC export. Outgoing upstream
// requests carry the W3C trace context through InjectTraceContext.
package observability
