package transform

import (
	"math"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/observability"
	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// fieldMapper implements the FieldTransformer interface.
type fieldMapper struct {
	tables *catalog.Tables
	logger observability.Logger
}

// NewFieldTransformer creates a FieldTransformer backed by tables.
func NewFieldTransformer(tables *catalog.Tables, logger observability.Logger) FieldTransformer {
	if tables == nil {
		tables = catalog.DefaultTables()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &fieldMapper{
		tables: tables,
		logger: logger,
	}
}

// Transform builds one output record per product. Keys follow the canonical
// order with renames applied in place; the derived price comes last.
func (m *fieldMapper) Transform(
	products []catalog.Product,
	opts catalog.TransformOptions,
) []*record.Record {
	out := make([]*record.Record, 0, len(products))
	for _, p := range products {
		out = append(out, m.transformOne(p, opts))
	}
	return out
}

// transformOne maps a single product.
func (m *fieldMapper) transformOne(p catalog.Product, opts catalog.TransformOptions) *record.Record {
	keys := m.tables.CanonicalKeys()
	rec := record.New(len(keys) + 1)

	for _, key := range keys {
		value, _ := p.Field(key)

		if opts.FormatDate && key == catalog.KeyReleaseDate {
			value = m.formatDate(value)
		}

		rec.Set(m.tables.OutputKey(key, opts.Rename), value)
	}

	if inr, ok := m.derivedPrice(p); ok {
		rec.Set(m.tables.DerivedPriceKey(opts.Rename), record.Float(inr))
	}

	return rec
}

// formatDate rewrites a parseable date string. Null, non-string and
// unparseable values are returned unchanged.
func (m *fieldMapper) formatDate(v record.Value) record.Value {
	date, ok := v.AsString()
	if !ok {
		return v
	}
	if formatted, ok := FormatReleaseDate(date); ok {
		return record.String(formatted)
	}
	if date != "" {
		m.logger.Debug("release date kept unformatted",
			observability.String("release_date", date))
	}
	return v
}

// derivedPrice returns the INR price of a USD product with a price.
func (m *fieldMapper) derivedPrice(p catalog.Product) (float64, bool) {
	if !p.IsUSD() {
		return 0, false
	}
	price, ok := p.PriceValue()
	if !ok {
		return 0, false
	}
	return roundTo(price*m.tables.USDToINR(), 2), true
}

// roundTo rounds f to the given number of decimal places, halves away from zero.
func roundTo(f float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(f*scale) / scale
}
