package listview

import (
	"fmt"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// LowStockThreshold marks rows whose stock is below it.
const LowStockThreshold = 5

// Row is one table line, already formatted for display.
type Row struct {
	ID         string
	SKU        string
	Brand      string
	BrandLabel string
	Model      string
	Quality    string
	Price      string
	Currency   string
	Stock      int64
	LowStock   bool
	PhotoURL   string
	Active     bool
}

// SortOption is one entry of the sort selector.
type SortOption struct {
	Key      SortKey
	Label    string
	Selected bool
}

// Table is everything needed to draw the products page.
type Table struct {
	Rows       []Row
	Empty      bool
	Matches    int
	Page       int
	TotalPages int
	PageLabel  string
	HasPrev    bool
	HasNext    bool
	State      State
	Brands     []string
	Qualities  []string
	Sorts      []SortOption
	PageSizes  []int
	Modal      Modal
	Loaded     bool
}

// Render maps the cached records and the state to a Table. It does not modify its inputs.
func Render(records []catalog.Product, state State, modal Modal) Table {
	filtered := ApplyFilters(records, state)
	items, page, totalPages := Paginate(filtered, state.Page, state.PageSize)
	state.Page = page

	rows := make([]Row, len(items))
	for i, p := range items {
		rows[i] = toRow(p)
	}

	sorts := make([]SortOption, len(SortKeys))
	for i, key := range SortKeys {
		sorts[i] = SortOption{Key: key, Label: key.Label(), Selected: key == state.Sort}
	}

	return Table{
		Rows:       rows,
		Empty:      len(rows) == 0,
		Matches:    len(filtered),
		Page:       page,
		TotalPages: totalPages,
		PageLabel:  fmt.Sprintf("%d / %d", page, totalPages),
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		State:      state,
		Brands:     Options(records, func(p catalog.Product) string { return p.Brand }),
		Qualities:  Options(records, func(p catalog.Product) string { return p.Quality }),
		Sorts:      sorts,
		PageSizes:  PageSizes,
		Modal:      modal,
	}
}

func toRow(p catalog.Product) Row {
	return Row{
		ID:         string(p.ID),
		SKU:        p.SKU,
		Brand:      p.Brand,
		BrandLabel: p.BrandLabel(),
		Model:      p.Model,
		Quality:    p.Quality,
		Price:      FormatPrice(p.Price),
		Currency:   p.Currency,
		Stock:      int64(p.Stock),
		LowStock:   p.Stock < LowStockThreshold,
		PhotoURL:   p.PhotoURL(),
		Active:     p.IsActive(),
	}
}

var pricePrinter = message.NewPrinter(language.Russian)

// FormatPrice formats a price the way the catalog is read by its users: Russian digit
// grouping, decimal comma, at most two fraction digits.
func FormatPrice(p catalog.Price) string {
	f, _ := p.Round(2).Float64()
	return pricePrinter.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
}
