package transform

import (
	"slices"
	"strings"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// keyOrderer implements the KeyOrderer interface.
type keyOrderer struct {
	customOrder []string
	logger      observability.Logger
}

// NewKeyOrderer creates a KeyOrderer using the custom priority list of tables.
func NewKeyOrderer(tables *catalog.Tables, logger observability.Logger) KeyOrderer {
	if tables == nil {
		tables = catalog.DefaultTables()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &keyOrderer{
		customOrder: tables.CustomOrder(),
		logger:      logger,
	}
}

// OrderKeys returns new records whose keys follow mode. The custom mode
// only applies to renamed records; unknown modes and custom without rename
// return the records unchanged.
func (o *keyOrderer) OrderKeys(
	records []*record.Record,
	mode catalog.FieldOrder,
	rename bool,
) []*record.Record {
	var reorder func(*record.Record) *record.Record

	switch mode {
	case catalog.FieldOrderAlpha:
		reorder = func(r *record.Record) *record.Record { return sortedByKey(r, false) }
	case catalog.FieldOrderReverse:
		reorder = func(r *record.Record) *record.Record { return sortedByKey(r, true) }
	case catalog.FieldOrderCustom:
		if !rename {
			o.logger.Debug("custom field order ignored without renamed fields")
			return records
		}
		reorder = o.customOrdered
	default:
		return records
	}

	out := make([]*record.Record, len(records))
	for i, r := range records {
		out[i] = reorder(r)
	}
	return out
}

// sortedByKey orders pairs by key, descending when reverse is set.
func sortedByKey(r *record.Record, reverse bool) *record.Record {
	pairs := r.Pairs()
	slices.SortStableFunc(pairs, func(a, b record.Pair) int {
		if reverse {
			return strings.Compare(b.Key, a.Key)
		}
		return strings.Compare(a.Key, b.Key)
	})
	return record.FromPairs(pairs)
}

// customOrdered emits the priority keys present in r, then the rest in
// their existing order.
func (o *keyOrderer) customOrdered(r *record.Record) *record.Record {
	out := record.New(r.Len())
	for _, key := range o.customOrder {
		if v, ok := r.Get(key); ok {
			out.Set(key, v)
		}
	}
	for _, p := range r.Pairs() {
		if !out.Has(p.Key) {
			out.Set(p.Key, p.Value)
		}
	}
	return out
}
