package productapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/pkg/client/httpclient"
	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory Product API.
type fakeAPI struct {
	mu       sync.Mutex
	pageSize int
	products []map[string]any
	bodies   []map[string]any
	imported []map[string]any
	status   int
	errBody  string
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", f.list)
		r.Post("/", f.save)
		r.Post("/import", f.importAll)
		r.Get("/export", f.export)
		r.Get("/{id}", f.get)
		r.Put("/{id}", f.save)
		r.Delete("/{id}", f.remove)
	})
	return r
}

func (f *fakeAPI) fail(w http.ResponseWriter) bool {
	if f.status == 0 {
		return false
	}
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.errBody))
	return true
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}
	if f.pageSize == 0 {
		_ = json.NewEncoder(w).Encode(f.products)
		return
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page = int(p[0] - '0')
	}
	total := (len(f.products) + f.pageSize - 1) / f.pageSize
	start := (page - 1) * f.pageSize
	end := min(start+f.pageSize, len(f.products))
	_ = json.NewEncoder(w).Encode(map[string]any{"items": f.products[start:end], "total_pages": total})
}

func (f *fakeAPI) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}
	id := chi.URLParam(r, "id")
	for _, p := range f.products {
		if p["id"] == id {
			_ = json.NewEncoder(w).Encode(p)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"Product ` + id + ` not found"}`))
}

func (f *fakeAPI) save(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies = append(f.bodies, body)
	body["id"] = "77"
	if id := chi.URLParam(r, "id"); id != "" {
		body["id"] = id
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) importAll(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}
	var rows []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"expect array"}`))
		return
	}
	f.imported = append(f.imported, rows...)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok": true, "created": len(rows), "merged": 0, "total": len(f.products) + len(rows),
	})
}

func (f *fakeAPI) export(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}
	_ = json.NewEncoder(w).Encode(f.products)
}

func (f *fakeAPI) remove(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail(w) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClientWithHTTP(srv.URL+"/", "", srv.Client(), logger)
}

func TestQuery_Values(t *testing.T) {
	// given
	q := Query{Search: "  iphone ", Brand: "apple", Sort: "price_asc", Page: 2, PageSize: 50}

	// when
	values := q.Values()

	// then
	assert.Equal(t, "brand=apple&page=2&page_size=50&q=iphone&sort=price_asc", values.Encode())
	assert.Empty(t, Query{}.Values())
}

func TestClient_ListAll(t *testing.T) {
	products := []map[string]any{
		{"id": "1", "brand": "apple", "model": "13", "quality": "oled", "price": "10,5", "stock": 2},
		{"id": 2, "brand": "samsung", "model": "S21", "quality": "incell", "price": 5, "stock": "10", "tags": "a, b"},
		{"id": "3", "brand": "xiaomi", "model": "Note", "quality": "orig", "price": 1, "stock": 1},
	}
	testCases := []struct {
		name     string
		pageSize int
	}{
		{name: "bare array", pageSize: 0},
		{name: "paginated envelope", pageSize: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			client := newTestClient(t, &fakeAPI{products: products, pageSize: tc.pageSize})

			// when
			items, err := client.ListAll(context.Background())

			// then
			require.NoError(t, err)
			require.Len(t, items, 3)
			assert.Equal(t, catalog.ID("2"), items[1].ID)
			assert.Equal(t, "10.5", items[0].Price.String())
			assert.EqualValues(t, 10, items[1].Stock)
			assert.Equal(t, catalog.Tags{"a", "b"}, items[1].Tags)
		})
	}
}

func TestClient_Get(t *testing.T) {
	// given
	client := newTestClient(t, &fakeAPI{products: []map[string]any{{"id": "5", "model": "X"}}})

	// when
	p, err := client.Get(context.Background(), "5")
	_, missingErr := client.Get(context.Background(), "6")

	// then
	require.NoError(t, err)
	assert.Equal(t, "X", p.Model)
	require.Error(t, missingErr)
	assert.ErrorIs(t, missingErr, ErrNotFound)
	assert.Equal(t, "Product 6 not found", missingErr.Error())
}

func TestClient_CreateAndUpdate(t *testing.T) {
	// given
	api := &fakeAPI{}
	client := newTestClient(t, api)
	p := catalog.Product{
		Brand:   "apple",
		Model:   "13",
		Quality: "oled",
		Price:   catalog.NewPrice(mustDecimal(t, "12.50")),
		Stock:   3,
		Tags:    catalog.Tags{"screen", "oled"},
	}

	// when
	created, createErr := client.Create(context.Background(), p)
	updated, updateErr := client.Update(context.Background(), "9", p)

	// then
	require.NoError(t, createErr)
	require.NoError(t, updateErr)
	assert.Equal(t, catalog.ID("77"), created.ID)
	assert.Equal(t, catalog.ID("9"), updated.ID)
	require.Len(t, api.bodies, 2)
	assert.Equal(t, "screen, oled", api.bodies[0]["tags"], "tags travel comma-joined")
	assert.EqualValues(t, 12.5, api.bodies[0]["price"])
	assert.EqualValues(t, 3, api.bodies[0]["stock"])
	assert.Equal(t, true, api.bodies[0]["active"])
}

func TestClient_Import(t *testing.T) {
	// given
	api := &fakeAPI{products: []map[string]any{{"id": "1", "model": "S21", "quality": "oled"}}}
	client := newTestClient(t, api)
	products := []catalog.Product{
		{ID: "5", SKU: "APL-13", Brand: "Apple", Model: "13", Quality: "oled", Stock: 2, Tags: catalog.Tags{"a", "b"}},
		{Brand: "samsung", Model: "A51", Quality: "incell"},
	}

	// when
	summary, err := client.Import(context.Background(), products)

	// then
	require.NoError(t, err)
	assert.Equal(t, catalog.ImportSummary{Created: 2, Merged: 0, Total: 3}, *summary)
	require.Len(t, api.imported, 2)
	assert.Equal(t, "APL-13", api.imported[0]["sku"])
	assert.Equal(t, "a, b", api.imported[0]["tags"])
	assert.NotContains(t, api.imported[0], "id", "ids are assigned by the API")
	assert.NotContains(t, api.imported[1], "sku", "an empty SKU is left to the API")
}

func TestClient_Export(t *testing.T) {
	// given
	api := &fakeAPI{products: []map[string]any{
		{"id": 1, "sku": "A-1", "model": "13", "quality": "oled", "price": "10,5", "tags": "x, y"},
		{"id": 2, "model": "S21", "quality": "incell", "stock": "4"},
	}}
	client := newTestClient(t, api)

	// when
	products, err := client.Export(context.Background())

	// then
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, catalog.ID("1"), products[0].ID)
	assert.Equal(t, "10.5", products[0].Price.String())
	assert.Equal(t, catalog.Tags{"x", "y"}, products[0].Tags)
	assert.Equal(t, catalog.Quantity(4), products[1].Stock)
}

func TestClient_ImportAndExportErrors(t *testing.T) {
	// given
	api := &fakeAPI{status: http.StatusServiceUnavailable, errBody: `{"error":"maintenance"}`}
	client := newTestClient(t, api)

	// when
	_, importErr := client.Import(context.Background(), []catalog.Product{{Model: "x", Quality: "y"}})
	_, exportErr := client.Export(context.Background())

	// then
	for _, err := range []error{importErr, exportErr} {
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "maintenance", apiErr.Message)
	}
}

func TestClient_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "plain text body", status: http.StatusBadRequest, body: "price must be positive\n", wantMessage: "price must be positive"},
		{name: "json error body", status: http.StatusConflict, body: `{"error":"duplicate sku"}`, wantMessage: "duplicate sku"},
		{name: "empty body", status: http.StatusInternalServerError, wantMessage: "product API responded with status 500"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			client := newTestClient(t, &fakeAPI{status: tc.status, errBody: tc.body})

			// when
			err := client.Delete(context.Background(), "1")

			// then
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.wantMessage, err.Error())
			assert.False(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	// given
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClientWithHTTP(srv.URL, "", &http.Client{Timeout: time.Second}, logger)

	// when
	_, err := client.ListAll(context.Background())

	// then
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call product API")
}

func TestNewClient_CircuitBreakerOpens(t *testing.T) {
	// given
	api := &fakeAPI{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)
	cfg := config.ProductAPIConfig{
		URL:     srv.URL,
		Timeout: time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			ConsecutiveFailures: 2,
			ErrorRatePercent:    50,
			MaxRequests:         1,
			OpenTimeout:         time.Minute,
		},
	}
	client := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// when
	for range 3 {
		err := client.Ping(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
	}
	err := client.Ping(context.Background())

	// then
	assert.ErrorIs(t, err, httpclient.ErrUnavailable)
}
