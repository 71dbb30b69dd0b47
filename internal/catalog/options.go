package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names.
const (
	ParamMinRating    = "min_rating"
	ParamBrand        = "brand"
	ParamCategory     = "category"
	ParamSortBy       = "sort_by"
	ParamSortOrder    = "sort_order"
	ParamRenameFields = "rename_fields"
	ParamFormatDate   = "format_date"
	ParamTopN         = "top_n"
	ParamTopBy        = "top_by"
	ParamFieldOrder   = "field_order"
)

// SortOrder is the direction of the comparator sort.
type SortOrder string

const (
	// SortAscending sorts smallest first.
	SortAscending SortOrder = "asc"
	// SortDescending sorts largest first.
	SortDescending SortOrder = "desc"
)

// FieldOrder selects how output keys are reordered.
type FieldOrder string

const (
	// FieldOrderNone keeps construction order.
	FieldOrderNone FieldOrder = ""
	// FieldOrderAlpha sorts keys ascending.
	FieldOrderAlpha FieldOrder = "alpha"
	// FieldOrderReverse sorts keys descending.
	FieldOrderReverse FieldOrder = "reverse"
	// FieldOrderCustom applies the custom priority list.
	FieldOrderCustom FieldOrder = "custom"
)

// FilterOptions configures the predicate filter. Nil or empty fields
// disable the corresponding predicate.
type FilterOptions struct {
	MinRating *float64
	Brand     string
	Category  string
}

// SortOptions configures the comparator sorter. An empty Field disables it.
type SortOptions struct {
	Field string
	Order SortOrder
}

// TransformOptions configures the field transformer.
type TransformOptions struct {
	Rename     bool
	FormatDate bool
}

// TopOptions configures the top-N selector. It is active only when N > 0
// and By is set.
type TopOptions struct {
	N  int
	By string
}

// Enabled reports whether the selector should run.
func (o TopOptions) Enabled() bool {
	return o.N > 0 && o.By != ""
}

// Options is the validated, immutable configuration of one pipeline run.
type Options struct {
	Filter     FilterOptions
	Sort       SortOptions
	Transform  TransformOptions
	Top        TopOptions
	FieldOrder FieldOrder
}

// ParseOptions validates request query values. Empty values count as absent.
// Every failure is a *ParameterError.
func ParseOptions(query url.Values, tables *Tables) (Options, error) {
	var opts Options

	if raw := query.Get(ParamMinRating); raw != "" {
		threshold, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		// NaN parses and then fails every comparison, matching nothing.
		if err != nil {
			perr := NewParameterError(ParamMinRating, raw, "Invalid min_rating value")
			perr.Cause = err
			return Options{}, perr
		}
		opts.Filter.MinRating = &threshold
	}
	opts.Filter.Brand = query.Get(ParamBrand)
	opts.Filter.Category = query.Get(ParamCategory)

	if field := query.Get(ParamSortBy); field != "" {
		if !tables.IsSortField(field) {
			return Options{}, NewParameterError(ParamSortBy, field,
				"Invalid sort_by field. Allowed: "+strings.Join(tables.SortFields(), ", "))
		}
		opts.Sort.Field = field
	}
	opts.Sort.Order = SortAscending
	if query.Get(ParamSortOrder) == string(SortDescending) {
		opts.Sort.Order = SortDescending
	}

	opts.Transform.Rename = query.Get(ParamRenameFields) == "true"
	opts.Transform.FormatDate = query.Get(ParamFormatDate) == "true"

	if raw := query.Get(ParamTopN); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			perr := NewParameterError(ParamTopN, raw, "Invalid top_n value")
			perr.Cause = err
			return Options{}, perr
		}
		opts.Top.N = n
	}
	if field := query.Get(ParamTopBy); field != "" {
		if !tables.IsRankField(field) {
			return Options{}, NewParameterError(ParamTopBy, field,
				"Invalid top_by field. Allowed: "+strings.Join(tables.RankFields(), ", "))
		}
		opts.Top.By = field
	}

	switch mode := FieldOrder(query.Get(ParamFieldOrder)); mode {
	case FieldOrderAlpha, FieldOrderReverse, FieldOrderCustom:
		opts.FieldOrder = mode
	default:
		opts.FieldOrder = FieldOrderNone
	}

	return opts, nil
}
