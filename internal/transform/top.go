package transform

import (
	"cmp"
	"slices"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// topSelector implements the TopSelector interface.
type topSelector struct {
	tables *catalog.Tables
	logger observability.Logger
}

// NewTopSelector creates a TopSelector backed by tables.
func NewTopSelector(tables *catalog.Tables, logger observability.Logger) TopSelector {
	if tables == nil {
		tables = catalog.DefaultTables()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &topSelector{
		tables: tables,
		logger: logger,
	}
}

// SelectTop ranks records descending by the field named in opts and keeps
// the first opts.N. Missing or non-numeric values rank as 0 and ties keep
// their incoming order. A disabled selector returns records unchanged.
func (s *topSelector) SelectTop(
	records []*record.Record,
	opts catalog.TopOptions,
	rename bool,
) []*record.Record {
	if !opts.Enabled() {
		return records
	}

	key := s.tables.OutputKey(opts.By, rename)

	type ranked struct {
		rec   *record.Record
		score float64
	}
	items := make([]ranked, len(records))
	for i, rec := range records {
		v, _ := rec.Get(key)
		items[i] = ranked{rec: rec, score: v.FloatOrZero()}
	}

	slices.SortStableFunc(items, func(a, b ranked) int {
		return cmp.Compare(b.score, a.score)
	})

	n := min(opts.N, len(items))
	out := make([]*record.Record, n)
	for i := 0; i < n; i++ {
		out[i] = items[i].rec
	}

	s.logger.Debug("top records selected",
		observability.String("top_by", key),
		observability.Int("requested", opts.N),
		observability.Int("selected", n))

	return out
}
