// Package upstream fetches the raw product document from the upstream
// catalog API.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// Fetcher retrieves the current product list.
type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.RawRecord, error)
}

var _ Fetcher = (*Client)(nil)

// Client is an HTTP Fetcher. It applies no timeout or retry of its own;
// the caller's context bounds each fetch.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *CircuitBreaker
	logger     observability.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCircuitBreaker guards fetches with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records fetch results and durations.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithTracer wraps each fetch in a client span.
func WithTracer(tracer *observability.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// NewClient creates a client for the upstream at url.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Breaker returns the circuit breaker, or nil when none is configured.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// Fetch performs one GET against the upstream and decodes a JSON array.
// Array elements that are not objects are returned as nil records. Every
// error matches ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context) ([]catalog.RawRecord, error) {
	start := time.Now()

	span := trace.SpanFromContext(ctx)
	if c.tracer != nil {
		ctx, span = c.tracer.StartSpan(ctx, "upstream.fetch",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attribute.String("url.full", c.url)),
		)
		defer span.End()
	}

	records, err := c.execute(ctx)

	result := observability.UpstreamResultSuccess
	switch {
	case errors.Is(err, ErrCircuitOpen):
		result = observability.UpstreamResultCircuitOpen
	case err != nil:
		result = observability.UpstreamResultError
	}
	if c.metrics != nil {
		c.metrics.RecordUpstreamFetch(result, time.Since(start), len(records))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)

		c.logger.WithContext(ctx).Error("upstream fetch failed",
			observability.String("url", c.url),
			observability.String("result", result),
			observability.Duration("duration", time.Since(start)),
			observability.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("upstream.records", len(records)))
	c.logger.WithContext(ctx).Debug("upstream fetch completed",
		observability.String("url", c.url),
		observability.Int("records", len(records)),
		observability.Duration("duration", time.Since(start)),
	)

	return records, nil
}

// execute runs fetch through the circuit breaker when one is configured.
func (c *Client) execute(ctx context.Context) ([]catalog.RawRecord, error) {
	if c.breaker == nil {
		return c.fetch(ctx)
	}

	records, err := c.breaker.Do(func() ([]catalog.RawRecord, error) {
		return c.fetch(ctx)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, newFetchError(c.url, "circuit breaker open", err)
	}
	return records, err
}

func (c *Client) fetch(ctx context.Context) ([]catalog.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, newFetchError(c.url, "invalid request", err)
	}
	req.Header.Set("Accept", "application/json")
	observability.InjectTraceContext(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newFetchError(c.url, "transport error", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		fetchErr := newFetchError(c.url, "unexpected status", nil)
		fetchErr.StatusCode = resp.StatusCode
		return nil, fetchErr
	}

	records, err := decodeRecords(resp.Body)
	if err != nil {
		return nil, newFetchError(c.url, "invalid document", err)
	}
	return records, nil
}

// decodeRecords decodes a JSON array of objects. Numbers are kept as
// json.Number so integer literals survive unchanged.
func decodeRecords(r io.Reader) ([]catalog.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: trailing data after document")
	}

	items, ok := doc.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %T", doc)
	}

	records := make([]catalog.RawRecord, len(items))
	for i, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			records[i] = catalog.RawRecord(obj)
		}
	}
	return records, nil
}
