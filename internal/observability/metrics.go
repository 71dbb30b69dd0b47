package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedRoute labels requests no registered route matched.
const UnmatchedRoute = "unmatched"

// Results of an upstream fetch.
const (
	UpstreamResultSuccess     = "success"
	UpstreamResultError       = "error"
	UpstreamResultCircuitOpen = "circuit_open"
)

var (
	requestLabels    = []string{"method", "route", "status"}
	latencyBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	upstreamOutcomes = []string{UpstreamResultSuccess, UpstreamResultError, UpstreamResultCircuitOpen}
)

// Metrics owns a private Prometheus registry with the service metrics.
type Metrics struct {
	namespace string
	registry  *prometheus.Registry

	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	responseBytes  *prometheus.HistogramVec
	inFlight       *prometheus.GaugeVec
	fetches        *prometheus.CounterVec
	fetchLatency   prometheus.Histogram
	fetchedRecords prometheus.Histogram
	breakerState   *prometheus.GaugeVec
	rateLimited    *prometheus.CounterVec
	buildInfo      *prometheus.GaugeVec
	processStart   prometheus.Gauge
}

// NewMetrics registers the service metrics under namespace, "catalog"
// when empty, along with the Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "catalog"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		namespace: namespace,
		registry:  reg,

		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests served, by route pattern and status.",
		}, requestLabels),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   latencyBuckets,
		}, requestLabels),
		responseBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response body size.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		}, requestLabels),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "HTTP requests currently being served.",
		}, []string{"method"}),

		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetches_total",
			Help:      "Upstream product fetches by result.",
		}, []string{"result"}),
		fetchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream product fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		fetchedRecords: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "records",
			Help:      "Records per successfully fetched upstream document.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),

		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		buildInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Always 1, labelled with build metadata.",
		}, []string{"version", "commit", "build_time"}),
		processStart: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Service start time in unix seconds.",
		}),
	}
	m.processStart.SetToCurrentTime()

	return m
}

// InitVecMetrics creates the known label combinations at zero so they are
// exported before the first event.
func (m *Metrics) InitVecMetrics() {
	for _, result := range upstreamOutcomes {
		m.fetches.WithLabelValues(result)
	}
	m.rateLimited.WithLabelValues(UnmatchedRoute)
}

// Namespace is the metric name prefix.
func (m *Metrics) Namespace() string { return m.namespace }

// Registry exposes the private registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordRequest observes one finished HTTP request. route must be the
// route pattern, never the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration, size int64) {
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.requests.With(labels).Inc()
	m.requestLatency.With(labels).Observe(d.Seconds())
	m.responseBytes.With(labels).Observe(float64(size))
}

func (m *Metrics) IncrementActiveRequests(method string) { m.inFlight.WithLabelValues(method).Inc() }
func (m *Metrics) DecrementActiveRequests(method string) { m.inFlight.WithLabelValues(method).Dec() }

// RecordUpstreamFetch observes one fetch. The record count is only
// observed on success.
func (m *Metrics) RecordUpstreamFetch(result string, d time.Duration, records int) {
	m.fetches.WithLabelValues(result).Inc()
	m.fetchLatency.Observe(d.Seconds())
	if result == UpstreamResultSuccess {
		m.fetchedRecords.Observe(float64(records))
	}
}

// SetCircuitBreakerState publishes the numeric state of breaker name.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// SetBuildInfo publishes build metadata.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// RecordRateLimitHit counts one rejected request on route.
func (m *Metrics) RecordRateLimitHit(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: true,
	})
}
