// Package pipeline runs the catalog stages in order: normalize, filter,
// sort, transform, top-N and key order.
package pipeline

import (
	"time"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/record"
	"github.com/vyrodovalexey/avacatalog/internal/transform"
)

// Stage names used in statistics, logs and metrics.
const (
	StageNormalize = "normalize"
	StageFilter    = "filter"
	StageSort      = "sort"
	StageTransform = "transform"
	StageTop       = "top"
	StageOrder     = "order"
)

// Stages lists the stage names in execution order.
var Stages = []string{StageNormalize, StageFilter, StageSort, StageTransform, StageTop, StageOrder}

// Stats summarizes one run.
type Stats struct {
	Received   int
	Normalized int
	Dropped    int
	Filtered   int
	Output     int
	Durations  map[string]time.Duration
}

// Result is the output of one run.
type Result struct {
	Records []*record.Record
	Dropped []catalog.DroppedRecord
	Stats   Stats
}

// Pipeline executes the catalog stages. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	tables  *catalog.Tables
	fields  transform.FieldTransformer
	top     transform.TopSelector
	order   transform.KeyOrderer
	logger  observability.Logger
	metrics *Metrics
}

// Option is a functional option for configuring the pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorded for every run.
func WithMetrics(metrics *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// New creates a pipeline over tables.
func New(tables *catalog.Tables, opts ...Option) *Pipeline {
	if tables == nil {
		tables = catalog.DefaultTables()
	}

	p := &Pipeline{
		tables: tables,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.fields = transform.NewFieldTransformer(tables, p.logger)
	p.top = transform.NewTopSelector(tables, p.logger)
	p.order = transform.NewKeyOrderer(tables, p.logger)

	return p
}

// Tables returns the lookup tables used by the pipeline.
func (p *Pipeline) Tables() *catalog.Tables {
	return p.tables
}

// Run applies every stage to raws. The only possible error is a
// *catalog.ProcessingError raised by the sort stage.
func (p *Pipeline) Run(raws []catalog.RawRecord, opts catalog.Options) (*Result, error) {
	stats := Stats{
		Received:  len(raws),
		Durations: make(map[string]time.Duration, len(Stages)),
	}
	timed := func(stage string, fn func()) {
		start := time.Now()
		fn()
		stats.Durations[stage] = time.Since(start)
	}

	var normalized catalog.NormalizeResult
	timed(StageNormalize, func() {
		normalized = catalog.Normalize(raws, p.tables)
	})
	stats.Normalized = len(normalized.Products)
	stats.Dropped = len(normalized.Dropped)
	for _, d := range normalized.Dropped {
		p.logger.Debug("upstream record dropped",
			observability.Int("index", d.Index),
			observability.String("reason", d.Reason))
	}

	var filtered []catalog.Product
	timed(StageFilter, func() {
		filtered = catalog.Filter(normalized.Products, opts.Filter)
	})
	stats.Filtered = len(filtered)

	var (
		sorted  []catalog.Product
		sortErr error
	)
	timed(StageSort, func() {
		sorted, sortErr = catalog.Sort(filtered, opts.Sort)
	})
	if sortErr != nil {
		p.metrics.recordFailure(StageSort)
		return nil, sortErr
	}

	var records []*record.Record
	timed(StageTransform, func() {
		records = p.fields.Transform(sorted, opts.Transform)
	})
	timed(StageTop, func() {
		records = p.top.SelectTop(records, opts.Top, opts.Transform.Rename)
	})
	timed(StageOrder, func() {
		records = p.order.OrderKeys(records, opts.FieldOrder, opts.Transform.Rename)
	})
	stats.Output = len(records)

	p.metrics.recordRun(stats)

	return &Result{
		Records: records,
		Dropped: normalized.Dropped,
		Stats:   stats,
	}, nil
}
