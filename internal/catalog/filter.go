package catalog

import (
	"golang.org/x/text/cases"

	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// Predicate decides whether a product is kept.
type Predicate func(Product) bool

// Predicates builds the active predicates for opts. Absent options
// contribute no predicate.
func Predicates(opts FilterOptions) []Predicate {
	var preds []Predicate

	if opts.MinRating != nil {
		threshold := *opts.MinRating
		preds = append(preds, func(p Product) bool {
			rating, ok := p.Rating()
			return ok && rating >= threshold
		})
	}

	// cases.Caser is stateful; each predicate owns its own folder.
	if opts.Brand != "" {
		folder := cases.Fold()
		want := folder.String(opts.Brand)
		preds = append(preds, func(p Product) bool {
			return foldedEqual(folder, p.Brand, want)
		})
	}

	if opts.Category != "" {
		folder := cases.Fold()
		want := folder.String(opts.Category)
		preds = append(preds, func(p Product) bool {
			return foldedEqual(folder, p.Category, want)
		})
	}

	return preds
}

// foldedEqual reports whether v is a string equal to want under folder.
// Null and non-string values never match.
func foldedEqual(folder cases.Caser, v record.Value, want string) bool {
	s, ok := v.AsString()
	return ok && folder.String(s) == want
}

// Filter returns the products matching every predicate of opts, in their
// original relative order. The input slice is not modified.
func Filter(products []Product, opts FilterOptions) []Product {
	preds := Predicates(opts)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if matchAll(p, preds) {
			out = append(out, p)
		}
	}
	return out
}

func matchAll(p Product, preds []Predicate) bool {
	for _, pred := range preds {
		if !pred(p) {
			return false
		}
	}
	return true
}
