package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for pipeline runs.
// A nil *Metrics records nothing.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	recordsTotal  *prometheus.CounterVec
	outputRecords prometheus.Histogram
}

// NewMetrics creates pipeline metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "catalog"
	}

	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs",
			},
			[]string{"result", "stage"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets: []float64{
					.00001, .00005, .0001, .0005,
					.001, .005, .01, .05, .1,
				},
			},
			[]string{"stage"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "records_total",
				Help:      "Total number of records seen by the pipeline, by outcome",
			},
			[]string{"outcome"},
		),
		outputRecords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "output_records",
				Help:      "Number of records returned per run",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
	}
}

// MustRegister registers all pipeline collectors with registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.runsTotal,
		m.stageDuration,
		m.recordsTotal,
		m.outputRecords,
	)
}

// Init pre-populates label combinations so they appear in /metrics
// before the first request.
func (m *Metrics) Init() {
	m.runsTotal.WithLabelValues("success", "")
	m.runsTotal.WithLabelValues("error", StageSort)
	for _, stage := range Stages {
		m.stageDuration.WithLabelValues(stage)
	}
	for _, outcome := range []string{"received", "dropped", "filtered_out", "returned"} {
		m.recordsTotal.WithLabelValues(outcome)
	}
}

func (m *Metrics) recordRun(stats Stats) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues("success", "").Inc()
	for stage, d := range stats.Durations {
		m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
	m.recordsTotal.WithLabelValues("received").Add(float64(stats.Received))
	m.recordsTotal.WithLabelValues("dropped").Add(float64(stats.Dropped))
	m.recordsTotal.WithLabelValues("filtered_out").Add(float64(stats.Normalized - stats.Filtered))
	m.recordsTotal.WithLabelValues("returned").Add(float64(stats.Output))
	m.outputRecords.Observe(float64(stats.Output))
}

func (m *Metrics) recordFailure(stage string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues("error", stage).Inc()
}
