// Package apitest runs an in-memory Product API for tests.
package apitest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/catalog"
)

// ErrProductNotFound is returned for unknown ids.
var ErrProductNotFound = errors.New("product not found")

// Store keeps products in a map. Ids are sequential numbers, created_at grows with every
// create, so the newest record has the largest value.
type Store struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
	nextID   int
	clock    int64
}

// NewStore creates a store holding the given products. Products without an id get one.
func NewStore(products ...catalog.Product) *Store {
	s := &Store{
		products: make(map[string]catalog.Product),
		nextID:   1,
	}
	for _, p := range products {
		if p.ID == "" {
			_, _ = s.Create(p)
			continue
		}
		s.clock++
		if p.CreatedAt == 0 {
			p.CreatedAt = catalog.Quantity(s.clock)
		}
		s.products[string(p.ID)] = p
	}
	return s
}

// FindByID retrieves a product by its ID.
func (s *Store) FindByID(id string) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// FindAll returns every product, newest first.
func (s *Store) FindAll() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b catalog.Product) int {
		if a.CreatedAt != b.CreatedAt {
			return int(b.CreatedAt - a.CreatedAt)
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return list
}

// Create stores a new product and returns it with its id, SKU and creation time.
func (s *Store) Create(p catalog.Product) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(p), nil
}

func (s *Store) createLocked(p catalog.Product) *catalog.Product {
	for s.products[fmt.Sprintf("%d", s.nextID)].ID != "" {
		s.nextID++
	}
	p.ID = catalog.ID(fmt.Sprintf("%d", s.nextID))
	if p.SKU == "" {
		p.SKU = fmt.Sprintf("SKU-%05d", s.nextID)
	}
	s.nextID++
	s.clock++
	p.CreatedAt = catalog.Quantity(s.clock)
	s.products[string(p.ID)] = p
	return &p
}

// Import merges items into the store by SKU. Items without a SKU get one made of brand,
// model and quality. An item whose SKU matches a stored product (ignoring case) is merged
// into it, any other item is created.
func (s *Store) Import(items []catalog.Product) catalog.ImportSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary catalog.ImportSummary
	for _, item := range items {
		item = normalizeImported(item)
		if existing, ok := s.findBySKULocked(item.SKU); ok {
			s.products[string(existing.ID)] = mergeProduct(existing, item)
			summary.Merged++
			continue
		}
		s.createLocked(item)
		summary.Created++
	}
	summary.Total = len(s.products)
	return summary
}

func (s *Store) findBySKULocked(sku string) (catalog.Product, bool) {
	key := strings.ToLower(catalog.OneLine(sku))
	if key == "" {
		return catalog.Product{}, false
	}
	for _, p := range s.products {
		if strings.ToLower(catalog.OneLine(p.SKU)) == key {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// makeSKU joins brand, model and quality with dashes, spaces inside them becoming dashes.
func makeSKU(brand, model, quality string) string {
	parts := make([]string, 0, 3)
	for _, v := range []string{brand, model, quality} {
		if v = strings.ReplaceAll(catalog.OneLine(v), " ", "-"); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "-")
}

func normalizeImported(p catalog.Product) catalog.Product {
	p = catalog.Resolve(p)
	p.ID = ""
	p.Brand = strings.ToLower(p.Brand)
	if p.SKU == "" {
		p.SKU = makeSKU(p.Brand, p.Model, p.Quality)
	}
	return p
}

// mergeProduct folds src into dst: stock is added up, a positive price replaces the
// stored one, empty text fields are filled in, non-empty tags and the active flag win.
func mergeProduct(dst, src catalog.Product) catalog.Product {
	dst.Stock += src.Stock
	if src.Price.IsPositive() {
		dst.Price = src.Price
	}
	fill := func(dst *string, src string) {
		if catalog.OneLine(*dst) == "" {
			*dst = src
		}
	}
	fill(&dst.Brand, src.Brand)
	fill(&dst.Model, src.Model)
	fill(&dst.Quality, src.Quality)
	fill(&dst.Currency, src.Currency)
	fill(&dst.Vendor, src.Vendor)
	fill(&dst.Photo, src.Photo)
	fill(&dst.Type, src.Type)
	if catalog.OneLine(string(dst.Specs)) == "" {
		dst.Specs = src.Specs
	}
	if len(src.Tags) > 0 {
		dst.Tags = src.Tags
	}
	if src.Active != nil {
		active := *src.Active
		dst.Active = &active
	}
	return dst
}

// Update replaces a product, keeping its id, SKU and creation time.
func (s *Store) Update(id string, p catalog.Product) (*catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p.ID = old.ID
	p.CreatedAt = old.CreatedAt
	if p.SKU == "" {
		p.SKU = old.SKU
	}
	s.products[id] = p
	return &p, nil
}

// DeleteByID deletes a product by its ID.
func (s *Store) DeleteByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}
