package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/config"
	"github.com/vyrodovalexey/avacatalog/internal/health"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/pipeline"
	"github.com/vyrodovalexey/avacatalog/internal/server/middleware"
	"github.com/vyrodovalexey/avacatalog/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubFetcher returns fixed records or a fixed error and counts calls.
type stubFetcher struct {
	records []catalog.RawRecord
	err     error
	calls   atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context) ([]catalog.RawRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func rawProduct(id int, brand string, price float64, currency string, rating float64, count int) catalog.RawRecord {
	return catalog.RawRecord{
		"id":             json.Number(fmt.Sprint(id)),
		"name":           fmt.Sprintf("Product %d", id),
		"brand":          brand,
		"category":       "Phone",
		"description":    "d",
		"price":          json.Number(fmt.Sprint(price)),
		"currency":       currency,
		"processor":      "A1",
		"memory":         "4GB",
		"release_date":   "2023-05-01",
		"average_rating": json.Number(fmt.Sprint(rating)),
		"rating_count":   json.Number(fmt.Sprint(count)),
	}
}

func newTestServer(t *testing.T, fetcher upstream.Fetcher, opts ...Option) *Server {
	t.Helper()

	cfg := config.DefaultConfig().Server
	return New(cfg, fetcher, pipeline.New(catalog.DefaultTables()), opts...)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

// decodeKeys returns the keys of each object in a JSON array, in document order.
func decodeKeys(t *testing.T, body []byte) [][]string {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('['), tok)

	var result [][]string
	for dec.More() {
		tok, err = dec.Token()
		require.NoError(t, err)
		require.Equal(t, json.Delim('{'), tok)

		var keys []string
		for dec.More() {
			keyTok, err := dec.Token()
			require.NoError(t, err)
			keys = append(keys, keyTok.(string))

			var skip json.RawMessage
			require.NoError(t, dec.Decode(&skip))
		}
		_, err = dec.Token()
		require.NoError(t, err)
		result = append(result, keys)
	}
	return result
}

func TestProducts_RenameAndFormatDate(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{records: []catalog.RawRecord{{
		"id":             json.Number("1"),
		"name":           "X",
		"brand":          "Acme",
		"category":       "Phone",
		"description":    "d",
		"price":          json.Number("100"),
		"currency":       "USD",
		"processor":      "A1",
		"memory":         "4GB",
		"release_date":   "2023-05-01",
		"average_rating": json.Number("4.5"),
		"rating_count":   json.Number("10"),
	}}}
	s := newTestServer(t, fetcher)

	w := doRequest(s, http.MethodGet, "/products?rename_fields=true&format_date=true")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)

	got := body[0]
	assert.Equal(t, "May 01, 2023", got["releaseDate"])
	assert.InDelta(t, 8300.0, got["priceInINR"], 1e-9)
	assert.Equal(t, float64(1), got["productId"])
	assert.Equal(t, "X", got["productName"])
	assert.Equal(t, "Acme", got["brandName"])
	assert.Equal(t, "Phone", got["category_name"])
	assert.Equal(t, "d", got["description_text"])
	assert.InDelta(t, 4.5, got["avgRating"], 1e-9)
	assert.Equal(t, float64(10), got["ratingCount"])
	assert.NotContains(t, got, "release_date")
	assert.Contains(t, w.Body.String(), `"priceInINR":8300.0`)
	assert.NotContains(t, got, "product_id")
	assert.Len(t, got, 13)
}

func TestProducts_KeyOrder(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{records: []catalog.RawRecord{
		rawProduct(1, "Acme", 100, "USD", 4.5, 10),
	}}
	s := newTestServer(t, fetcher)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "construction order",
			query: "",
			want: []string{
				"product_id", "product_name", "brand_name", "category_name",
				"description_text", "price", "currency", "processor", "memory",
				"release_date", "average_rating", "rating_count", "price_in_inr",
			},
		},
		{
			name:  "custom with rename",
			query: "?rename_fields=true&field_order=custom",
			want: []string{
				"avgRating", "ratingCount", "releaseDate", "price", "priceInINR",
				"brandName", "category_name", "processor", "memory",
				"description_text", "productName", "productId", "currency",
			},
		},
		{
			name:  "alpha",
			query: "?field_order=alpha",
			want: []string{
				"average_rating", "brand_name", "category_name", "currency",
				"description_text", "memory", "price", "price_in_inr",
				"processor", "product_id", "product_name", "rating_count",
				"release_date",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(s, http.MethodGet, "/products"+tt.query)
			require.Equal(t, http.StatusOK, w.Code)

			keys := decodeKeys(t, w.Body.Bytes())
			require.Len(t, keys, 1)
			assert.Equal(t, tt.want, keys[0])
		})
	}
}

func TestProducts_FilterSortTop(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{records: []catalog.RawRecord{
		rawProduct(1, "Acme", 300, "USD", 4.0, 10),
		rawProduct(2, "acme", 100, "EUR", 4.8, 50),
		rawProduct(3, "Other", 200, "USD", 4.9, 5),
		rawProduct(4, "ACME", 200, "USD", 3.0, 70),
		{"id": json.Number("5"), "name": "broken"},
	}}
	s := newTestServer(t, fetcher)

	tests := []struct {
		name    string
		query   string
		wantIDs []float64
	}{
		{name: "no options", query: "", wantIDs: []float64{1, 2, 3, 4}},
		{name: "brand filter", query: "?brand=ACME", wantIDs: []float64{1, 2, 4}},
		{name: "min rating", query: "?min_rating=4.5", wantIDs: []float64{2, 3}},
		{name: "sort price asc", query: "?sort_by=price", wantIDs: []float64{2, 3, 4, 1}},
		{name: "sort price desc", query: "?sort_by=price&sort_order=desc", wantIDs: []float64{1, 3, 4, 2}},
		{name: "top by rating count", query: "?top_n=2&top_by=rating_count", wantIDs: []float64{4, 2}},
		{name: "top larger than input", query: "?brand=other&top_n=5&top_by=price", wantIDs: []float64{3}},
		{name: "empty result", query: "?brand=nobody", wantIDs: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(s, http.MethodGet, "/products"+tt.query)
			require.Equal(t, http.StatusOK, w.Code)

			var body []map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body)

			ids := make([]float64, 0, len(body))
			for _, rec := range body {
				ids = append(ids, rec["product_id"].(float64))
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestProducts_EmptyResultIsArray(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{}})

	w := doRequest(s, http.MethodGet, "/products")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProducts_NullTextFields(t *testing.T) {
	t.Parallel()

	nullDate := rawProduct(2, "Acme", 200, "USD", 4, 2)
	nullDate["release_date"] = nil
	nullDate["description"] = nil
	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{
		rawProduct(1, "Acme", 100, "USD", 4, 1),
		nullDate,
	}})

	w := doRequest(s, http.MethodGet, "/products?format_date=true&sort_by=release_date")

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, float64(2), body[0]["product_id"])
	assert.Nil(t, body[0]["release_date"])
	assert.Contains(t, body[0], "release_date")
	assert.Nil(t, body[0]["description_text"])
	assert.Equal(t, "May 01, 2023", body[1]["release_date"])
}

func TestProducts_NaNRatingIsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{
		rawProduct(1, "Acme", 100, "USD", 4, 1),
	}})

	w := doRequest(s, http.MethodGet, "/products?min_rating=nan")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProducts_ClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		wantMsg string
	}{
		{name: "min rating", query: "?min_rating=abc", wantMsg: "Invalid min_rating value"},
		{
			name:    "sort by",
			query:   "?sort_by=name",
			wantMsg: "Invalid sort_by field. Allowed: price, release_date, rating_count",
		},
		{name: "top n", query: "?top_n=two&top_by=price", wantMsg: "Invalid top_n value"},
		{
			name:    "top by",
			query:   "?top_n=2&top_by=release_date",
			wantMsg: "Invalid top_by field. Allowed: price, average_rating, rating_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fetcher := &stubFetcher{}
			s := newTestServer(t, fetcher)

			w := doRequest(s, http.MethodGet, "/products"+tt.query)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.wantMsg), w.Body.String())
			assert.Zero(t, fetcher.calls.Load(), "upstream must not be contacted")
		})
	}
}

func TestProducts_ServerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "fetch failure",
			err:     &upstream.FetchError{URL: "http://upstream", Reason: "transport error"},
			wantMsg: MsgFetchFailed,
		},
		{
			name:    "wrapped fetch failure",
			err:     fmt.Errorf("fetch: %w", upstream.ErrFetchFailed),
			wantMsg: MsgFetchFailed,
		},
		{
			name:    "unknown error",
			err:     errors.New("boom"),
			wantMsg: MsgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, &stubFetcher{err: tt.err})

			w := doRequest(s, http.MethodGet, "/products")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.wantMsg), w.Body.String())
		})
	}
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "parameter error",
			err:        catalog.NewParameterError("top_n", "x", "Invalid top_n value"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid top_n value",
		},
		{
			name:       "processing error",
			err:        &catalog.ProcessingError{Stage: "sort", Message: "compare failed"},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    MsgSortFailed,
		},
		{
			name:       "fetch error",
			err:        upstream.ErrFetchFailed,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    MsgFetchFailed,
		},
		{
			name:       "circuit open",
			err:        &upstream.FetchError{URL: "u", Reason: "circuit breaker open", Cause: upstream.ErrCircuitOpen},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    MsgFetchFailed,
		},
		{
			name:       "other",
			err:        context.Canceled,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    MsgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, msg := statusForError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestRouter_MethodsAndRoutes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{}},
		WithHealthChecker(health.NewChecker("test")))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "post products", method: http.MethodPost, path: "/products",
			wantStatus: http.StatusMethodNotAllowed, wantBody: `{"error":"Method not allowed"}`},
		{name: "delete products", method: http.MethodDelete, path: "/products",
			wantStatus: http.StatusMethodNotAllowed, wantBody: `{"error":"Method not allowed"}`},
		{name: "put products", method: http.MethodPut, path: "/products?brand=x",
			wantStatus: http.StatusMethodNotAllowed, wantBody: `{"error":"Method not allowed"}`},
		{name: "unknown path", method: http.MethodGet, path: "/unknown",
			wantStatus: http.StatusNotFound, wantBody: `{"error":"Not found"}`},
		{name: "live", method: http.MethodGet, path: "/live",
			wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := doRequest(s, tt.method, tt.path)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestRouter_CustomProductsPath(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	cfg.ProductsPath = "/api/electronics"
	s := New(cfg, &stubFetcher{records: []catalog.RawRecord{}}, pipeline.New(nil))

	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/api/electronics").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(s, http.MethodGet, "/products").Code)
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	rl := middleware.NewRateLimiter(1, 1, false)
	defer rl.Stop()

	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{}}, WithRateLimiter(rl))

	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/products").Code)

	w := doRequest(s, http.MethodGet, "/products")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("servertest")
	metrics.InitVecMetrics()
	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{}}, WithMetrics(metrics))

	require.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/products").Code)
	require.Equal(t, http.StatusNotFound, doRequest(s, http.MethodGet, "/nope").Code)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Contains(t, body, `servertest_requests_total{method="GET",route="/products",status="200"} 1`)
	assert.Contains(t, body, `servertest_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func TestProducts_LogsUpstreamFailureAndStats(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := observability.NewLoggerFromZap(zap.New(core))

	s := newTestServer(t, &stubFetcher{records: []catalog.RawRecord{
		rawProduct(1, "Acme", 100, "USD", 4.5, 10),
		{"id": json.Number("2")},
	}}, WithLogger(logger))
	require.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/products").Code)

	completed := logs.FilterMessage("pipeline completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	assert.Equal(t, int64(2), fields["received"])
	assert.Equal(t, int64(1), fields["dropped"])
	assert.Equal(t, int64(1), fields["output"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	cfg.Address = "127.0.0.1"
	cfg.Port = freePort(t)

	s := New(cfg, &stubFetcher{records: []catalog.RawRecord{}}, pipeline.New(nil))
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", cfg.Port), s.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.Addr() + "/products")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, s.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, <-errCh)
	assert.False(t, s.IsRunning())

	require.NoError(t, s.Stop(ctx), "stopping twice is a no-op")
}

func TestServer_StartAfterStop(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	cfg.Address = "127.0.0.1"
	cfg.Port = freePort(t)
	s := New(cfg, &stubFetcher{}, pipeline.New(nil))

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestServer_StartPortInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	cfg := config.DefaultConfig().Server
	cfg.Address = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	s := New(cfg, &stubFetcher{}, pipeline.New(nil))

	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
	assert.False(t, s.IsRunning())
}

func freePort(t *testing.T) int {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	return srv.Listener.Addr().(*net.TCPAddr).Port
}
