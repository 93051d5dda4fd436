package listview

import "strings"

// SortKey selects the ordering of the table.
type SortKey string

const (
	SortCreatedDesc SortKey = "created_desc"
	SortPriceAsc    SortKey = "price_asc"
	SortPriceDesc   SortKey = "price_desc"
	SortStockAsc    SortKey = "stock_asc"
	SortStockDesc   SortKey = "stock_desc"
	SortModelAsc    SortKey = "model_asc"
)

// SortKeys lists the supported orderings in the order they are offered to the user.
var SortKeys = []SortKey{
	SortCreatedDesc,
	SortPriceAsc,
	SortPriceDesc,
	SortStockAsc,
	SortStockDesc,
	SortModelAsc,
}

var sortLabels = map[SortKey]string{
	SortCreatedDesc: "Newest first",
	SortPriceAsc:    "Price: low to high",
	SortPriceDesc:   "Price: high to low",
	SortStockAsc:    "Stock: low to high",
	SortStockDesc:   "Stock: high to low",
	SortModelAsc:    "Model: A to Z",
}

// Label returns the human readable name of the ordering.
func (k SortKey) Label() string {
	return sortLabels[k]
}

// ParseSortKey maps user input to a SortKey, falling back to the default ordering.
func ParseSortKey(s string) SortKey {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sortLabels[k]; ok {
		return k
	}
	return SortCreatedDesc
}

const (
	// AnyValue disables a dropdown filter.
	AnyValue = "any"
	// DefaultPageSize is used when no valid page size was configured.
	DefaultPageSize = 20
)

// PageSizes are the page sizes offered by the page-size selector.
var PageSizes = []int{10, 20, 50, 100}

// State is the user's current selection: filters, ordering, page and the record open
// for editing ("" when the modal is closed or in create mode).
type State struct {
	Page      int
	PageSize  int
	Search    string
	Brand     string
	Quality   string
	Sort      SortKey
	EditingID string
}

// NewState returns the initial selection.
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{
		Page:     1,
		PageSize: pageSize,
		Brand:    AnyValue,
		Quality:  AnyValue,
		Sort:     SortCreatedDesc,
	}
}

// Controls is one submission of the filter bar.
type Controls struct {
	Search   string
	Brand    string
	Quality  string
	Sort     SortKey
	PageSize int
}

// Controls returns the filter bar values of the state.
func (s State) Controls() Controls {
	return Controls{
		Search:   s.Search,
		Brand:    s.Brand,
		Quality:  s.Quality,
		Sort:     s.Sort,
		PageSize: s.PageSize,
	}
}

// filterValue normalises a dropdown value; "" and "any" both mean "no filter".
func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, AnyValue) {
		return AnyValue
	}
	return v
}

func isSet(filter string) bool {
	return filterValue(filter) != AnyValue
}
