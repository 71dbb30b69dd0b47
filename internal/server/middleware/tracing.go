package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// SpanKey is the gin context key holding the request span.
const SpanKey = "otel-span"

// Tracing opens a server span per request, continuing any W3C trace the
// caller sent. Trace and span IDs are copied to the request context so
// WithContext loggers include them. A nil tracer disables the middleware.
func Tracing(tracer *observability.Tracer) gin.HandlerFunc {
	if tracer == nil {
		return passThrough
	}

	return func(c *gin.Context) {
		req := c.Request
		route := routeLabel(c)

		ctx := observability.ExtractTraceContext(req.Context(), req.Header)
		ctx, span := tracer.StartSpan(ctx, req.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", req.URL.Path),
				attribute.String("url.query", req.URL.RawQuery),
				attribute.String("client.address", c.ClientIP()),
			),
		)
		defer span.End()

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request.id", id))
		}

		c.Set(SpanKey, span)
		c.Request = req.WithContext(observability.ContextWithSpan(ctx, span))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if last := c.Errors.Last(); last != nil {
			span.RecordError(errors.Unwrap(last))
		}
		if status >= 500 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
		}
	}
}

// GetSpan returns the span stored by Tracing, or nil.
func GetSpan(c *gin.Context) trace.Span {
	v, ok := c.Get(SpanKey)
	if !ok {
		return nil
	}
	span, _ := v.(trace.Span)
	return span
}
