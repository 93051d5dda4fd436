// Package catalog defines the product record as the admin panel sees it and the
// normalisation rules applied to records coming from the Product API.
package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency is used when a record carries no currency.
	DefaultCurrency = "TJS"

	imagesPrefix     = "/images/"
	placeholderImage = "placeholder.png"
)

// Product is a single catalog record. Optional fields are zero when the API omits them,
// Active is nil when the API did not say (see IsActive).
type Product struct {
	ID        ID       `json:"id,omitempty"`
	SKU       string   `json:"sku,omitempty"`
	Brand     string   `json:"brand"`
	Model     string   `json:"model"`
	Quality   string   `json:"quality"`
	Price     Price    `json:"price"`
	Currency  string   `json:"currency,omitempty"`
	Vendor    string   `json:"vendor,omitempty"`
	Photo     string   `json:"photo,omitempty"`
	Stock     Quantity `json:"stock"`
	Type      string   `json:"type,omitempty"`
	Tags      Tags     `json:"tags,omitempty"`
	Specs     Specs    `json:"specs,omitempty"`
	Active    *bool    `json:"active,omitempty"`
	CreatedAt Quantity `json:"created_at,omitempty"`
}

// IsActive reports whether the record is active. Records without the flag are active.
func (p Product) IsActive() bool {
	return p.Active == nil || *p.Active
}

// BrandLabel returns the brand as shown in tables.
func (p Product) BrandLabel() string {
	return BrandLabel(p.Brand)
}

// PhotoURL returns the absolute URL of the record's photo.
func (p Product) PhotoURL() string {
	return PhotoURL(p.Photo)
}

// Price is a decimal amount that decodes leniently: JSON numbers and strings are accepted,
// "," is read as the decimal separator, anything unparsable becomes zero.
type Price struct {
	decimal.Decimal
}

// NewPrice wraps a decimal value.
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(data []byte) error {
	d, _ := parseNumber(data)
	p.Decimal = d
	return nil
}

// MarshalJSON encodes the price as a bare JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// Quantity is an integer that decodes leniently the same way Price does, dropping any
// fractional part.
type Quantity int64

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	d, _ := parseNumber(data)
	*q = Quantity(d.IntPart())
	return nil
}

// Tags is a set of labels. It decodes from a JSON array or from a comma separated string.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = CleanTags(items)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = SplitTags(s)
	return nil
}

// Join returns the tags as one comma separated string.
func (t Tags) Join() string {
	return strings.Join(t, ", ")
}

// SplitTags splits a comma separated list, dropping empty items.
func SplitTags(s string) Tags {
	return CleanTags(strings.Split(s, ","))
}

// CleanTags normalises whitespace in every tag and drops the empty ones.
func CleanTags(items []string) Tags {
	out := make(Tags, 0, len(items))
	for _, item := range items {
		if v := OneLine(item); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseDecimal parses a user or API supplied number, accepting "," as the decimal separator.
func ParseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

// parseNumber reads a JSON number or numeric string. The bool is false when the value was
// absent or not numeric, in which case zero is returned.
func parseNumber(data []byte) (decimal.Decimal, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return decimal.Zero, false
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return decimal.Zero, false
		}
	}
	d, err := ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// OneLine collapses all whitespace runs into single spaces and trims the ends.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BrandLabel upper-cases the first letter of a brand slug.
func BrandLabel(brand string) string {
	s := OneLine(brand)
	if s == "" {
		return ""
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// PhotoURL resolves a stored photo reference to a URL:
// empty values point at the placeholder, absolute http(s) URLs are kept and
// file names or "images/..." paths are served from /images/.
func PhotoURL(photo string) string {
	s := OneLine(photo)
	if s == "" {
		return imagesPrefix + placeholderImage
	}
	low := strings.ToLower(s)
	if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
		return s
	}
	s = strings.TrimLeft(s, "/")
	if strings.HasPrefix(strings.ToLower(s), "images/") {
		return "/" + s
	}
	return imagesPrefix + s
}

// Resolve applies the defaults and whitespace rules to a record received from the API.
// Every consumer of records goes through it, so optional fields never need ad hoc defaults.
func Resolve(p Product) Product {
	p.ID = ID(OneLine(string(p.ID)))
	p.SKU = OneLine(p.SKU)
	p.Brand = OneLine(p.Brand)
	p.Model = OneLine(p.Model)
	p.Quality = OneLine(p.Quality)
	p.Currency = OneLine(p.Currency)
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	p.Vendor = OneLine(p.Vendor)
	p.Photo = OneLine(p.Photo)
	p.Type = OneLine(p.Type)
	p.Specs = Specs(OneLine(string(p.Specs)))
	p.Tags = CleanTags(p.Tags)
	if p.Active == nil {
		active := true
		p.Active = &active
	}
	return p
}

// ResolveAll applies Resolve to every record.
func ResolveAll(items []Product) []Product {
	out := make([]Product, len(items))
	for i, item := range items {
		out[i] = Resolve(item)
	}
	return out
}
