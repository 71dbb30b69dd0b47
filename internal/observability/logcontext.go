package observability

import "context"

// requestMeta is the correlation data a request carries through the
// pipeline. It is stored by value so each With* call derives a new copy.
type requestMeta struct {
	requestID string
	traceID   string
	spanID    string
}

type requestMetaKey struct{}

func requestMetaFrom(ctx context.Context) requestMeta {
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

func withRequestMeta(ctx context.Context, update func(*requestMeta)) context.Context {
	m := requestMetaFrom(ctx)
	update(&m)
	return context.WithValue(ctx, requestMetaKey{}, m)
}

func (m requestMeta) fields() []Field {
	fields := make([]Field, 0, 3)
	if m.requestID != "" {
		fields = append(fields, String("request_id", m.requestID))
	}
	if m.traceID != "" {
		fields = append(fields, String("trace_id", m.traceID))
	}
	if m.spanID != "" {
		fields = append(fields, String("span_id", m.spanID))
	}
	return fields
}

// ContextWithRequestID stores the request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withRequestMeta(ctx, func(m *requestMeta) { m.requestID = id })
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	return requestMetaFrom(ctx).requestID
}

// ContextWithTraceID stores the trace ID in ctx.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return withRequestMeta(ctx, func(m *requestMeta) { m.traceID = id })
}

// TraceIDFromContext returns the trace ID stored in ctx, if any.
func TraceIDFromContext(ctx context.Context) string {
	return requestMetaFrom(ctx).traceID
}

// ContextWithSpanID stores the span ID in ctx.
func ContextWithSpanID(ctx context.Context, id string) context.Context {
	return withRequestMeta(ctx, func(m *requestMeta) { m.spanID = id })
}
