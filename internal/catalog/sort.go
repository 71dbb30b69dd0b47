package catalog

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// sortKey is the precomputed comparison key of one product.
type sortKey struct {
	product Product
	num     float64
	text    string
}

// Sort returns the products ordered by opts.Field. Null or missing values
// compare as 0 for numeric fields and as "" for the release date. The sort
// is stable in both directions. An empty field returns the input unchanged.
func Sort(products []Product, opts SortOptions) ([]Product, error) {
	if opts.Field == "" {
		return products, nil
	}

	textual, err := sortFieldKind(opts.Field)
	if err != nil {
		return nil, err
	}

	keys := make([]sortKey, len(products))
	for i, p := range products {
		k, err := buildSortKey(p, opts.Field, textual)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}

	compare := func(a, b sortKey) int {
		if textual {
			return cmp.Compare(a.text, b.text)
		}
		return cmp.Compare(a.num, b.num)
	}
	if opts.Order == SortDescending {
		asc := compare
		compare = func(a, b sortKey) int { return asc(b, a) }
	}

	slices.SortStableFunc(keys, compare)

	out := make([]Product, len(keys))
	for i, k := range keys {
		out[i] = k.product
	}
	return out, nil
}

// sortFieldKind reports whether field compares as text.
func sortFieldKind(field string) (bool, error) {
	switch field {
	case KeyReleaseDate:
		return true, nil
	case KeyPrice, KeyRatingCount:
		return false, nil
	default:
		return false, &ProcessingError{
			Stage:   "sort",
			Message: fmt.Sprintf("unsupported sort field %q", field),
		}
	}
}

func buildSortKey(p Product, field string, textual bool) (sortKey, error) {
	k := sortKey{product: p}

	v, _ := p.Field(field)
	switch {
	case v.IsNull():
	case textual && v.Kind() == record.KindString:
		k.text, _ = v.AsString()
	case !textual && v.Kind() == record.KindNumber:
		k.num, _ = v.AsFloat()
	default:
		return sortKey{}, &ProcessingError{
			Stage:   "sort",
			Message: fmt.Sprintf("cannot compare %s value of field %q", v.Kind(), field),
		}
	}

	return k, nil
}
