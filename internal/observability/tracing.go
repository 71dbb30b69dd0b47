package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// OTLP gRPC exporter tuning.
const (
	otlpTimeout       = 10 * time.Second
	otlpReconnect     = 10 * time.Second
	otlpRetryInitial  = time.Second
	otlpRetryMax      = 30 * time.Second
	otlpRetryDeadline = time.Minute
)

// TracerConfig configures NewTracer.
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is the collector host:port. Without it spans are
	// sampled and recorded but never exported.
	OTLPEndpoint string
	SamplingRate float64
	Enabled      bool
}

// Tracer starts spans for the catalog service.
type Tracer struct {
	cfg      TracerConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewTracer builds a Tracer. When tracing is disabled the returned Tracer
// draws no-op spans from the global provider and installs nothing.
func NewTracer(cfg TracerConfig) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{cfg: cfg, tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	provider, err := newProvider(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{cfg: cfg, tracer: provider.Tracer(cfg.ServiceName), provider: provider}, nil
}

func newProvider(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplingRate)),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(ctx, exporterOptions(cfg.OTLPEndpoint)...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(opts...), nil
}

// samplerFor maps a rate in [0,1] to a sampler. Rates in between honor
// the parent's sampling decision.
func samplerFor(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func exporterOptions(endpoint string) []otlptracegrpc.Option {
	retry := otlptracegrpc.RetryConfig{
		Enabled:         true,
		InitialInterval: otlpRetryInitial,
		MaxInterval:     otlpRetryMax,
		MaxElapsedTime:  otlpRetryDeadline,
	}
	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(otlpTimeout),
		otlptracegrpc.WithReconnectionPeriod(otlpReconnect),
		otlptracegrpc.WithRetry(retry),
	}
}

// Enabled reports whether a real provider backs the tracer.
func (t *Tracer) Enabled() bool { return t.cfg.Enabled }

// Shutdown flushes buffered spans. It is a no-op for a disabled tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartSpan starts a span named name as a child of any span in ctx.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span, a no-op span when none.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// ContextWithSpan records the trace and span IDs of span in ctx for
// WithContext loggers.
func ContextWithSpan(ctx context.Context, span trace.Span) context.Context {
	sc := span.SpanContext()
	return withRequestMeta(ctx, func(m *requestMeta) {
		if sc.HasTraceID() {
			m.traceID = sc.TraceID().String()
		}
		if sc.HasSpanID() {
			m.spanID = sc.SpanID().String()
		}
	})
}

// ExtractTraceContext continues the trace described by inbound headers.
func ExtractTraceContext(ctx context.Context, h http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
}

// InjectTraceContext writes the current trace into outbound headers.
func InjectTraceContext(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}
