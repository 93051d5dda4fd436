// Package productapi is the HTTP client of the Product API.
package productapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/pkg/client/httpclient"
	"github.com/abgdnv/catalogadmin/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	productsPath = "/api/products"
	importPath   = productsPath + "/import"
	exportPath   = productsPath + "/export"
	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// Query selects a list page. Zero fields are not sent.
type Query struct {
	Search   string
	Brand    string
	Quality  string
	Sort     string
	Page     int
	PageSize int
}

// Values encodes the query with the parameter names of the Product API.
func (q Query) Values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("q", s)
	}
	if q.Brand != "" {
		v.Set("brand", q.Brand)
	}
	if q.Quality != "" {
		v.Set("quality", q.Quality)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return v
}

// Page is one list response. TotalPages is 1 when the API returned a bare array.
type Page struct {
	Items      []catalog.Product `json:"items"`
	TotalPages int               `json:"total_pages"`
}

// UnmarshalJSON accepts both a bare array of products and the {items, total_pages} envelope.
func (p *Page) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []catalog.Product
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*p = Page{Items: items, TotalPages: 1}
		return nil
	}
	type envelope Page
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*p = Page(e)
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	return nil
}

// payload is the request body of create and update; tags travel as one comma-joined string.
type payload struct {
	SKU      string           `json:"sku,omitempty"`
	Brand    string           `json:"brand"`
	Model    string           `json:"model"`
	Quality  string           `json:"quality"`
	Price    catalog.Price    `json:"price"`
	Currency string           `json:"currency,omitempty"`
	Vendor   string           `json:"vendor,omitempty"`
	Photo    string           `json:"photo,omitempty"`
	Stock    catalog.Quantity `json:"stock"`
	Type     string           `json:"type,omitempty"`
	Tags     string           `json:"tags,omitempty"`
	Specs    string           `json:"specs,omitempty"`
	Active   bool             `json:"active"`
}

func toPayload(p catalog.Product) payload {
	return payload{
		SKU:      p.SKU,
		Brand:    p.Brand,
		Model:    p.Model,
		Quality:  p.Quality,
		Price:    p.Price,
		Currency: p.Currency,
		Vendor:   p.Vendor,
		Photo:    p.Photo,
		Stock:    p.Stock,
		Type:     p.Type,
		Tags:     p.Tags.Join(),
		Specs:    string(p.Specs),
		Active:   p.IsActive(),
	}
}

// Client talks to the Product API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	healthPath string
	httpClient *http.Client
	logger     *slog.Logger
	requests   metric.Int64Counter
}

// NewClient creates a client with a per-request timeout, tracing and a circuit breaker in
// front of the API. Failed requests are not retried.
func NewClient(cfg config.ProductAPIConfig, logger *slog.Logger) *Client {
	cb := httpclient.NewCircuitBreaker("product-api-cb", cfg.CircuitBreaker, logger)
	transport := otelhttp.NewTransport(httpclient.CircuitBreakerTransport(cb, http.DefaultTransport.(*http.Transport).Clone()))
	return NewClientWithHTTP(cfg.URL, cfg.HealthPath, &http.Client{Transport: transport, Timeout: cfg.Timeout}, logger)
}

// NewClientWithHTTP creates a client on top of an existing http.Client.
func NewClientWithHTTP(baseURL, healthPath string, httpClient *http.Client, logger *slog.Logger) *Client {
	meter := otel.Meter("catalog-admin")
	requests, err := meter.Int64Counter("productapi_requests", metric.WithDescription("Total number of Product API requests"))
	if err != nil {
		panic(fmt.Sprintf("failed to create productapi_requests counter: %v", err))
	}
	if healthPath == "" {
		healthPath = productsPath
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		healthPath: healthPath,
		httpClient: httpClient,
		logger:     logger.With("component", "productapi"),
		requests:   requests,
	}
}

// List returns one page of products as selected by q.
func (c *Client) List(ctx context.Context, q Query) (*Page, error) {
	path := productsPath
	if values := q.Values(); len(values) > 0 {
		path += "?" + values.Encode()
	}
	var page Page
	if err := c.do(ctx, "list", http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAll returns every product. When the API paginates, all pages are fetched in order.
func (c *Client) ListAll(ctx context.Context) ([]catalog.Product, error) {
	first, err := c.List(ctx, Query{})
	if err != nil {
		return nil, err
	}
	items := first.Items
	for page := 2; page <= first.TotalPages; page++ {
		next, err := c.List(ctx, Query{Page: page})
		if err != nil {
			return nil, err
		}
		items = append(items, next.Items...)
	}
	return items, nil
}

// Get returns a single product.
func (c *Client) Get(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	if err := c.do(ctx, "get", http.MethodGet, productPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create adds a product and returns it as stored by the API.
func (c *Client) Create(ctx context.Context, p catalog.Product) (*catalog.Product, error) {
	created := p
	if err := c.do(ctx, "create", http.MethodPost, productsPath, toPayload(p), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces a product and returns it as stored by the API.
func (c *Client) Update(ctx context.Context, id string, p catalog.Product) (*catalog.Product, error) {
	updated := p
	updated.ID = catalog.ID(id)
	if err := c.do(ctx, "update", http.MethodPut, productPath(id), toPayload(p), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a product.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, productPath(id), nil, nil)
}

// Import sends records for the API to merge by SKU: a record whose SKU matches a stored
// one adds its stock to it, the rest are created. Ids of the records are not sent.
func (c *Client) Import(ctx context.Context, products []catalog.Product) (*catalog.ImportSummary, error) {
	body := make([]payload, len(products))
	for i, p := range products {
		body[i] = toPayload(p)
	}
	var summary catalog.ImportSummary
	if err := c.do(ctx, "import", http.MethodPost, importPath, body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Export returns every product as stored by the API.
func (c *Client) Export(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.do(ctx, "export", http.MethodGet, exportPath, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Ping checks that the API answers on its health path.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, c.healthPath, nil, nil)
}

func productPath(id string) string {
	return productsPath + "/" + url.PathEscape(id)
}

// do sends a request and decodes a non-empty 2xx body into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Product API request failed", "operation", op, "error", err)
		return fmt.Errorf("failed to call product API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read product API response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "Product API returned an error", "operation", op, "status", resp.StatusCode)
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
