package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key holding the request ID.
	RequestIDKey = "requestID"
)

var healthPaths = map[string]struct{}{
	"/live":   {},
	"/health": {},
	"/ready":  {},
}

// LoggingConfig configures LoggingWithConfig.
type LoggingConfig struct {
	Logger observability.Logger
	// SkipPaths are not logged. They still get a request ID.
	SkipPaths []string
	// SkipHealthCheck suppresses logs for the health endpoints.
	SkipHealthCheck bool
}

// Logging tags every request with an ID and logs one line per request.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return LoggingWithConfig(LoggingConfig{Logger: logger})
}

// LoggingWithConfig is Logging with explicit settings. An incoming
// X-Request-ID is reused, otherwise a UUID is generated. The ID is echoed
// in the response and stored on the request context.
func LoggingWithConfig(cfg LoggingConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	quiet := make(map[string]struct{}, len(cfg.SkipPaths)+len(healthPaths))
	for _, p := range cfg.SkipPaths {
		quiet[p] = struct{}{}
	}
	if cfg.SkipHealthCheck {
		for p := range healthPaths {
			quiet[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		id := assignRequestID(c)

		if _, skip := quiet[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		begin := time.Now()
		c.Next()
		logCompletion(logger, c, id, time.Since(begin))
	}
}

func assignRequestID(c *gin.Context) string {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(RequestIDKey, id)
	c.Header(RequestIDHeader, id)
	c.Request = c.Request.WithContext(observability.ContextWithRequestID(c.Request.Context(), id))
	return id
}

func logCompletion(logger observability.Logger, c *gin.Context, id string, latency time.Duration) {
	status := c.Writer.Status()
	fields := []observability.Field{
		observability.String("request_id", id),
		observability.String("method", c.Request.Method),
		observability.String("path", c.Request.URL.Path),
		observability.String("query", c.Request.URL.RawQuery),
		observability.Int("status", status),
		observability.Duration("latency", latency),
		observability.String("client_ip", c.ClientIP()),
		observability.Int("body_size", c.Writer.Size()),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		fields = append(fields, observability.String("user_agent", ua))
	}
	if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
		fields = append(fields, observability.Strings("errors", errs.Errors()))
	}

	const msg = "request completed"
	switch {
	case status >= 500:
		logger.Error(msg, fields...)
	case status >= 400:
		logger.Warn(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}

// GetRequestID returns the ID assigned by the logging middleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
