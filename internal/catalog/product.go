package catalog

import (
	"github.com/vyrodovalexey/avacatalog/internal/record"
)

// RawRecord is one untyped upstream record. A nil RawRecord stands for an
// upstream element that was not a JSON object.
type RawRecord map[string]interface{}

// Product is the canonical form of one catalog item.
// Numeric fields hold either a number or null. Text fields hold whatever
// scalar upstream sent, null included.
type Product struct {
	ID            record.Value
	Name          record.Value
	Brand         record.Value
	Category      record.Value
	Description   record.Value
	Price         record.Value
	Currency      record.Value
	Processor     record.Value
	Memory        record.Value
	ReleaseDate   record.Value
	AverageRating record.Value
	RatingCount   record.Value
}

// PriceValue returns the price when it is not null.
func (p Product) PriceValue() (float64, bool) {
	return p.Price.AsFloat()
}

// Rating returns the average rating when it is not null.
func (p Product) Rating() (float64, bool) {
	return p.AverageRating.AsFloat()
}

// IsUSD reports whether the product is priced in US dollars.
func (p Product) IsUSD() bool {
	currency, ok := p.Currency.AsString()
	return ok && currency == USD
}

// Field returns the value stored under a canonical output key.
func (p Product) Field(key string) (record.Value, bool) {
	switch key {
	case KeyProductID:
		return p.ID, true
	case KeyProductName:
		return p.Name, true
	case KeyBrandName:
		return p.Brand, true
	case KeyCategoryName:
		return p.Category, true
	case KeyDescriptionText:
		return p.Description, true
	case KeyPrice:
		return p.Price, true
	case KeyCurrency:
		return p.Currency, true
	case KeyProcessor:
		return p.Processor, true
	case KeyMemory:
		return p.Memory, true
	case KeyReleaseDate:
		return p.ReleaseDate, true
	case KeyAverageRating:
		return p.AverageRating, true
	case KeyRatingCount:
		return p.RatingCount, true
	default:
		return record.Value{}, false
	}
}
