package catalog

import "fmt"

// ImportSummary is the Product API's answer to a bulk import. Records whose SKU already
// existed are merged into the stored one, the rest are created.
type ImportSummary struct {
	Created int `json:"created"`
	Merged  int `json:"merged"`
	Total   int `json:"total"`
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("%d created, %d merged, %d products in the catalog", s.Created, s.Merged, s.Total)
}
