package listview

// TotalPages returns the number of pages needed for n items, never less than one.
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// ClampPage keeps page within [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	return max(1, min(page, totalPages))
}

// Paginate returns the items of the given page together with the clamped page number and
// the total number of pages.
func Paginate[T any](items []T, page, pageSize int) ([]T, int, int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := TotalPages(len(items), pageSize)
	page = ClampPage(page, totalPages)
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(items))
	if start >= end {
		return []T{}, page, totalPages
	}
	return items[start:end], page, totalPages
}
