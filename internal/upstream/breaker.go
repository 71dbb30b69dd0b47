package upstream

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// tripRatio is the failure share within a window that opens the breaker.
const tripRatio = 0.5

// BreakerStateFunc observes state changes. state follows gobreaker:
// 0 closed, 1 half-open, 2 open.
type BreakerStateFunc func(name string, state int)

// BreakerSettings configures a CircuitBreaker.
type BreakerSettings struct {
	// Threshold is the minimum number of fetches in a window before the
	// failure ratio is considered.
	Threshold int
	// Timeout is both the counting window while closed and the cool down
	// while open.
	Timeout time.Duration
	// HalfOpenRequests is the number of trial fetches let through while
	// half-open.
	HalfOpenRequests int
}

// CircuitBreaker stops calling a failing upstream for a cool down period.
type CircuitBreaker struct {
	gb       *gobreaker.CircuitBreaker
	logger   observability.Logger
	tracer   *observability.Tracer
	onChange BreakerStateFunc
}

// BreakerOption customizes a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithBreakerLogger logs state changes to logger.
func WithBreakerLogger(logger observability.Logger) BreakerOption {
	return func(cb *CircuitBreaker) { cb.logger = logger }
}

// WithBreakerStateCallback calls fn after every state change.
func WithBreakerStateCallback(fn BreakerStateFunc) BreakerOption {
	return func(cb *CircuitBreaker) { cb.onChange = fn }
}

// WithBreakerTracer records each state change as a short span.
func WithBreakerTracer(tracer *observability.Tracer) BreakerOption {
	return func(cb *CircuitBreaker) { cb.tracer = tracer }
}

// NewCircuitBreaker returns a breaker that opens once Threshold fetches
// were seen in the window and at least half failed. Fetches abandoned
// because the caller went away are not failures.
func NewCircuitBreaker(name string, s BreakerSettings, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(cb)
	}

	minRequests := clampUint32(s.Threshold)
	cb.gb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: clampUint32(s.HalfOpenRequests),
		Interval:    s.Timeout,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < minRequests {
				return false
			}
			return float64(c.TotalFailures) >= tripRatio*float64(c.Requests)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: cb.stateChanged,
	})
	return cb
}

// Do runs fetch unless the breaker is open. Rejected calls return
// ErrCircuitOpen without running fetch.
func (cb *CircuitBreaker) Do(fetch func() ([]catalog.RawRecord, error)) ([]catalog.RawRecord, error) {
	out, err := cb.gb.Execute(func() (interface{}, error) {
		return fetch()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	records, _ := out.([]catalog.RawRecord)
	return records, err
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State { return cb.gb.State() }

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string { return cb.gb.Name() }

func (cb *CircuitBreaker) stateChanged(name string, from, to gobreaker.State) {
	cb.logger.Warn("upstream circuit breaker changed state",
		observability.String("breaker", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	if cb.tracer != nil {
		_, span := cb.tracer.StartSpan(context.Background(), "upstream.breaker.transition",
			trace.WithAttributes(
				attribute.String("breaker.name", name),
				attribute.String("breaker.from", from.String()),
				attribute.String("breaker.to", to.String()),
			),
		)
		span.End()
	}

	if cb.onChange != nil {
		cb.onChange(name, int(to))
	}
}

func clampUint32(n int) uint32 {
	switch {
	case n <= 0:
		return 0
	case uint64(n) >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(n)
	}
}
