package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
)

// ============================================================
// Fetch
// ============================================================

func newUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_Success(t *testing.T) {
	t.Parallel()

	srv := newUpstream(t, http.StatusOK, `[
		{"id": 1, "name": "Laptop", "price": 100, "average_rating": 4.5},
		"not an object",
		{"id": "x-2", "name": "Phone", "price": null}
	]`)

	records, err := NewClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Laptop", records[0]["name"])
	assert.Equal(t, json.Number("1"), records[0]["id"])
	assert.Nil(t, records[1])
	assert.Equal(t, "x-2", records[2]["id"])
	assert.Contains(t, records[2], "price")
	assert.Nil(t, records[2]["price"])
}

func TestClient_Fetch_EmptyArray(t *testing.T) {
	t.Parallel()

	srv := newUpstream(t, http.StatusOK, `[]`)

	records, err := NewClient(srv.URL).Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_Fetch_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
		wantStatus int
	}{
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"error":"boom"}`,
			wantReason: "unexpected status",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       ``,
			wantReason: "unexpected status",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid json",
			status:     http.StatusOK,
			body:       `[{"id": 1,`,
			wantReason: "invalid document",
		},
		{
			name:       "object document",
			status:     http.StatusOK,
			body:       `{"products": []}`,
			wantReason: "invalid document",
		},
		{
			name:       "trailing garbage",
			status:     http.StatusOK,
			body:       `[] []`,
			wantReason: "invalid document",
		},
		{
			name:       "empty body",
			status:     http.StatusOK,
			body:       ``,
			wantReason: "invalid document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newUpstream(t, tt.status, tt.body)

			records, err := NewClient(srv.URL).Fetch(context.Background())

			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.Is(err, ErrFetchFailed))

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.wantReason, fetchErr.Reason)
			assert.Equal(t, tt.wantStatus, fetchErr.StatusCode)
			assert.Equal(t, srv.URL, fetchErr.URL)
		})
	}
}

func TestClient_Fetch_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.Contains(t, err.Error(), "transport error")
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Fetch(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Fetch_SendsHeaders(t *testing.T) {
	t.Parallel()

	var accept atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept.Store(r.Header.Get("Accept"))
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "application/json", accept.Load())
}

func TestClient_Fetch_RecordsMetrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	ok := newUpstream(t, http.StatusOK, `[{"id": 1}]`)
	bad := newUpstream(t, http.StatusBadGateway, ``)

	_, err := NewClient(ok.URL, WithMetrics(metrics)).Fetch(context.Background())
	require.NoError(t, err)
	_, err = NewClient(bad.URL, WithMetrics(metrics)).Fetch(context.Background())
	require.Error(t, err)

	body := scrape(t, metrics)
	assert.Contains(t, body, `test_upstream_fetches_total{result="success"} 1`)
	assert.Contains(t, body, `test_upstream_fetches_total{result="error"} 1`)
}

func TestClient_Fetch_WithTracer(t *testing.T) {
	t.Parallel()

	tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: "test"})
	require.NoError(t, err)
	srv := newUpstream(t, http.StatusOK, `[]`)

	_, err = NewClient(srv.URL, WithTracer(tracer)).Fetch(context.Background())

	assert.NoError(t, err)
}

// ============================================================
// Circuit breaker
// ============================================================

func TestClient_Fetch_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: "test"})
	require.NoError(t, err)

	var states []int
	cb := NewCircuitBreaker("upstream", BreakerSettings{
		Threshold:        2,
		Timeout:          time.Minute,
		HalfOpenRequests: 1,
	},
		WithBreakerTracer(tracer),
		WithBreakerStateCallback(func(_ string, state int) {
			states = append(states, state)
		}),
	)
	metrics := observability.NewMetrics("test")
	client := NewClient(srv.URL, WithCircuitBreaker(cb), WithMetrics(metrics))

	for i := 0; i < 2; i++ {
		_, err := client.Fetch(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, []int{int(gobreaker.StateOpen)}, states)

	_, err = client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, int32(2), hits.Load())

	assert.Contains(t, scrape(t, metrics), `test_upstream_fetches_total{result="circuit_open"} 1`)
}

func TestCircuitBreaker_CanceledNotCounted(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("upstream", BreakerSettings{
		Threshold:        1,
		Timeout:          time.Minute,
		HalfOpenRequests: 1,
	})

	_, err := cb.Do(func() ([]catalog.RawRecord, error) {
		return nil, newFetchError("http://upstream", "transport error", context.Canceled)
	})

	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, "upstream", cb.Name())
}

func TestClampUint32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    int
		expected uint32
	}{
		{name: "positive", input: 100, expected: 100},
		{name: "zero", input: 0, expected: 0},
		{name: "negative", input: -1, expected: 0},
		{name: "max uint32", input: int(^uint32(0)), expected: ^uint32(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, clampUint32(tt.input))
		})
	}
}

// ============================================================
// Errors
// ============================================================

func TestFetchError_Error(t *testing.T) {
	t.Parallel()

	err := &FetchError{URL: "http://u", StatusCode: 502, Reason: "unexpected status"}
	assert.Equal(t, "upstream fetch http://u failed: unexpected status (status 502)", err.Error())

	wrapped := newFetchError("http://u", "transport error", errors.New("refused"))
	assert.Equal(t, "upstream fetch http://u failed: transport error: refused", wrapped.Error())
	assert.True(t, errors.Is(wrapped, ErrFetchFailed))
}

func TestDecodeRecords_KeepsNumberLiterals(t *testing.T) {
	t.Parallel()

	records, err := decodeRecords(strings.NewReader(`[{"price": 100, "average_rating": 4.50}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, json.Number("100"), records[0]["price"])
	assert.Equal(t, json.Number("4.50"), records[0]["average_rating"])
}

// scrape renders the metrics registry in text format.
func scrape(t *testing.T, metrics *observability.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
