package catalog

// Upstream field names required on every raw record.
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldBrand         = "brand"
	FieldCategory      = "category"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldCurrency      = "currency"
	FieldProcessor     = "processor"
	FieldMemory        = "memory"
	FieldReleaseDate   = "release_date"
	FieldAverageRating = "average_rating"
	FieldRatingCount   = "rating_count"
)

// Canonical output keys, in emission order.
const (
	KeyProductID       = "product_id"
	KeyProductName     = "product_name"
	KeyBrandName       = "brand_name"
	KeyCategoryName    = "category_name"
	KeyDescriptionText = "description_text"
	KeyPrice           = "price"
	KeyCurrency        = "currency"
	KeyProcessor       = "processor"
	KeyMemory          = "memory"
	KeyReleaseDate     = "release_date"
	KeyAverageRating   = "average_rating"
	KeyRatingCount     = "rating_count"
)

// Derived price key names.
const (
	KeyPriceInINR        = "price_in_inr"
	KeyPriceInINRRenamed = "priceInINR"
)

// DefaultUSDToINR is the static conversion rate used for the derived price.
const DefaultUSDToINR = 83.0

// USD is the currency code that receives a derived INR price.
const USD = "USD"

// Tables holds the lookup tables shared by every pipeline stage.
// A Tables value is built once at startup and never modified; accessors
// return copies so callers cannot alter it.
type Tables struct {
	requiredFields []string
	canonicalKeys  []string
	renames        map[string]string
	customOrder    []string
	sortFields     []string
	rankFields     []string
	usdToINR       float64
}

// NewTables builds the lookup tables with the given USD to INR rate.
// A non-positive rate falls back to DefaultUSDToINR.
func NewTables(usdToINR float64) *Tables {
	if usdToINR <= 0 {
		usdToINR = DefaultUSDToINR
	}

	return &Tables{
		requiredFields: []string{
			FieldID, FieldName, FieldBrand, FieldCategory, FieldDescription,
			FieldPrice, FieldCurrency, FieldProcessor, FieldMemory,
			FieldReleaseDate, FieldAverageRating, FieldRatingCount,
		},
		canonicalKeys: []string{
			KeyProductID, KeyProductName, KeyBrandName, KeyCategoryName,
			KeyDescriptionText, KeyPrice, KeyCurrency, KeyProcessor, KeyMemory,
			KeyReleaseDate, KeyAverageRating, KeyRatingCount,
		},
		renames: map[string]string{
			KeyAverageRating: "avgRating",
			KeyRatingCount:   "ratingCount",
			KeyReleaseDate:   "releaseDate",
			KeyBrandName:     "brandName",
			KeyProductName:   "productName",
			KeyProductID:     "productId",
		},
		customOrder: []string{
			"avgRating", "ratingCount", "releaseDate", KeyPrice, KeyPriceInINRRenamed,
			"brandName", KeyCategoryName, KeyProcessor, KeyMemory, KeyDescriptionText,
			"productName", "productId",
		},
		sortFields: []string{KeyPrice, KeyReleaseDate, KeyRatingCount},
		rankFields: []string{KeyPrice, KeyAverageRating, KeyRatingCount},
		usdToINR:   usdToINR,
	}
}

// DefaultTables returns tables using DefaultUSDToINR.
func DefaultTables() *Tables {
	return NewTables(DefaultUSDToINR)
}

// RequiredFields returns the upstream fields every record must carry.
func (t *Tables) RequiredFields() []string {
	return cloneStrings(t.requiredFields)
}

// CanonicalKeys returns the output keys in emission order.
func (t *Tables) CanonicalKeys() []string {
	return cloneStrings(t.canonicalKeys)
}

// CustomOrder returns the priority list used by the custom key order.
func (t *Tables) CustomOrder() []string {
	return cloneStrings(t.customOrder)
}

// SortFields returns the fields accepted by sort_by.
func (t *Tables) SortFields() []string {
	return cloneStrings(t.sortFields)
}

// RankFields returns the fields accepted by top_by.
func (t *Tables) RankFields() []string {
	return cloneStrings(t.rankFields)
}

// USDToINR returns the conversion rate for the derived price.
func (t *Tables) USDToINR() float64 {
	return t.usdToINR
}

// OutputKey returns the key emitted for a canonical key, applying the
// rename table when rename is set. Keys absent from the table pass through.
func (t *Tables) OutputKey(canonical string, rename bool) string {
	if !rename {
		return canonical
	}
	if renamed, ok := t.renames[canonical]; ok {
		return renamed
	}
	return canonical
}

// DerivedPriceKey returns the key of the derived INR price.
func (t *Tables) DerivedPriceKey(rename bool) string {
	if rename {
		return KeyPriceInINRRenamed
	}
	return KeyPriceInINR
}

// IsSortField reports whether field is accepted by sort_by.
func (t *Tables) IsSortField(field string) bool {
	return containsString(t.sortFields, field)
}

// IsRankField reports whether field is accepted by top_by.
func (t *Tables) IsRankField(field string) bool {
	return containsString(t.rankFields, field)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
