package catalog

import (
	"errors"
	"math"

	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// DroppedRecord identifies an upstream record excluded during normalization.
type DroppedRecord struct {
	Index  int
	Reason string
}

// NormalizeResult is the outcome of normalizing a batch. Malformed records
// are reported in Dropped and never fail the batch.
type NormalizeResult struct {
	Products []Product
	Dropped  []DroppedRecord
}

// Normalize converts raw upstream records into Products, preserving order.
func Normalize(raws []RawRecord, tables *Tables) NormalizeResult {
	result := NormalizeResult{
		Products: make([]Product, 0, len(raws)),
	}

	for i, raw := range raws {
		product, err := NormalizeRecord(raw, tables)
		if err != nil {
			result.Dropped = append(result.Dropped, DroppedRecord{Index: i, Reason: err.Error()})
			continue
		}
		result.Products = append(result.Products, product)
	}

	return result
}

// NormalizeRecord converts a single raw record. The returned error is always
// a *MalformedRecordError.
func NormalizeRecord(raw RawRecord, tables *Tables) (Product, error) {
	if raw == nil {
		return Product{}, &MalformedRecordError{Reason: "not an object"}
	}

	for _, field := range tables.requiredFields {
		if _, ok := raw[field]; !ok {
			return Product{}, &MalformedRecordError{Field: field, Reason: "missing"}
		}
	}

	r := recordReader{raw: raw}
	p := Product{
		ID:            r.identifier(FieldID),
		Name:          r.text(FieldName),
		Brand:         r.text(FieldBrand),
		Category:      r.text(FieldCategory),
		Description:   r.text(FieldDescription),
		Price:         r.nonNegative(FieldPrice),
		Currency:      r.text(FieldCurrency),
		Processor:     r.text(FieldProcessor),
		Memory:        r.text(FieldMemory),
		ReleaseDate:   r.text(FieldReleaseDate),
		AverageRating: r.number(FieldAverageRating),
		RatingCount:   r.integer(FieldRatingCount),
	}
	if r.err != nil {
		return Product{}, r.err
	}

	return p, nil
}

// recordReader extracts typed fields and keeps the first failure.
type recordReader struct {
	raw RawRecord
	err *MalformedRecordError
}

func (r *recordReader) fail(field, reason string) {
	if r.err == nil {
		r.err = &MalformedRecordError{Field: field, Reason: reason}
	}
}

func (r *recordReader) scalar(field string) (record.Value, bool) {
	v, err := record.FromAny(r.raw[field])
	if err != nil {
		reason := err.Error()
		if errors.Is(err, record.ErrUnsupportedValue) {
			reason = "unsupported value"
		}
		r.fail(field, reason)
		return record.Value{}, false
	}
	return v, true
}

// text accepts any scalar. Non-string values are kept as sent.
func (r *recordReader) text(field string) record.Value {
	v, _ := r.scalar(field)
	return v
}

func (r *recordReader) identifier(field string) record.Value {
	v, ok := r.scalar(field)
	if !ok {
		return record.Value{}
	}
	switch v.Kind() {
	case record.KindString, record.KindNumber:
		return v
	default:
		r.fail(field, "expected string or number, got "+v.Kind().String())
		return record.Value{}
	}
}

func (r *recordReader) number(field string) record.Value {
	v, ok := r.scalar(field)
	if !ok {
		return record.Value{}
	}
	switch v.Kind() {
	case record.KindNull, record.KindNumber:
		return v
	default:
		r.fail(field, "expected number or null, got "+v.Kind().String())
		return record.Value{}
	}
}

func (r *recordReader) nonNegative(field string) record.Value {
	v := r.number(field)
	if f, ok := v.AsFloat(); ok && f < 0 {
		r.fail(field, "negative value")
	}
	return v
}

func (r *recordReader) integer(field string) record.Value {
	v := r.number(field)
	if f, ok := v.AsFloat(); ok && f != math.Trunc(f) {
		r.fail(field, "expected integer")
	}
	return v
}
