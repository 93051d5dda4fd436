// Package listview keeps the product table consistent with the user's filter, sort and
// page selections and with the authoritative record set held by the Product API.
package listview

import (
	"cmp"
	"slices"
	"strings"

	"github.com/abgdnv/catalogadmin/internal/catalog"
)

// ApplyFilters returns the records matching the state's search term and dropdown filters,
// ordered by the state's sort key. The input slice is not modified.
func ApplyFilters(records []catalog.Product, state State) []catalog.Product {
	term := strings.ToLower(strings.TrimSpace(state.Search))
	out := make([]catalog.Product, 0, len(records))
	for _, p := range records {
		if isSet(state.Brand) && !strings.EqualFold(strings.TrimSpace(p.Brand), filterValue(state.Brand)) {
			continue
		}
		if isSet(state.Quality) && !strings.EqualFold(strings.TrimSpace(p.Quality), filterValue(state.Quality)) {
			continue
		}
		if term != "" && !strings.Contains(haystack(p), term) {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, comparator(state.Sort))
	return out
}

// haystack is the lower-cased text the search term is matched against.
func haystack(p catalog.Product) string {
	return strings.ToLower(strings.Join([]string{
		p.Brand,
		p.Model,
		p.Quality,
		strings.Join(p.Tags, " "),
		p.Type,
		p.Vendor,
		string(p.Specs),
	}, " "))
}

func comparator(key SortKey) func(a, b catalog.Product) int {
	switch key {
	case SortPriceAsc:
		return func(a, b catalog.Product) int { return a.Price.Cmp(b.Price.Decimal) }
	case SortPriceDesc:
		return func(a, b catalog.Product) int { return b.Price.Cmp(a.Price.Decimal) }
	case SortStockAsc:
		return func(a, b catalog.Product) int { return cmp.Compare(a.Stock, b.Stock) }
	case SortStockDesc:
		return func(a, b catalog.Product) int { return cmp.Compare(b.Stock, a.Stock) }
	case SortModelAsc:
		return func(a, b catalog.Product) int {
			return strings.Compare(strings.ToLower(a.Model), strings.ToLower(b.Model))
		}
	default:
		return func(a, b catalog.Product) int { return cmp.Compare(b.CreatedAt, a.CreatedAt) }
	}
}

// Options returns the distinct non-empty values of a field, sorted, for a dropdown.
// Values differing only in case are listed once.
func Options(records []catalog.Product, field func(catalog.Product) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range records {
		v := catalog.OneLine(field(p))
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}
