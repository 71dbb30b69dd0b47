// Package transform shapes canonical products into the ordered output
// records returned to clients: field renaming, date formatting, the derived
// INR price, top-N selection and key reordering.
package transform

import (
	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// FieldTransformer converts products into output records.
type FieldTransformer interface {
	// Transform builds one output record per product, in input order.
	Transform(products []catalog.Product, opts catalog.TransformOptions) []*record.Record
}

// TopSelector keeps the highest-ranked records.
type TopSelector interface {
	// SelectTop ranks records descending by opts.By and keeps the first opts.N.
	// rename tells which key holds the ranking field.
	SelectTop(records []*record.Record, opts catalog.TopOptions, rename bool) []*record.Record
}

// KeyOrderer reorders the keys of output records.
type KeyOrderer interface {
	// OrderKeys returns records whose keys follow mode.
	OrderKeys(records []*record.Record, mode catalog.FieldOrder, rename bool) []*record.Record
}
