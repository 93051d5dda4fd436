package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/pkg/server"
	"github.com/abgdnv/catalogadmin/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// API serves the Product API REST contract from a Store.
type API struct {
	store    *Store
	validate *validator.Validate
	logger   *slog.Logger

	// pageSize, when set, makes the list endpoint answer with {items, total_pages}
	// pages of that size even without a page_size parameter.
	pageSize   atomic.Int32
	failStatus atomic.Int32
}

// NewAPI creates an API backed by store.
func NewAPI(store *Store, logger *slog.Logger) *API {
	return &API{
		store:    store,
		validate: validator.New(),
		logger:   logger.With("component", "apitest"),
	}
}

// Start serves an API holding products on a local port until the test ends.
func Start(tb testing.TB, products ...catalog.Product) (*httptest.Server, *API) {
	tb.Helper()
	api := NewAPI(NewStore(products...), slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(api.Routes())
	tb.Cleanup(srv.Close)
	return srv, api
}

// Store returns the backing store.
func (a *API) Store() *Store {
	return a.store
}

// Fail makes every request answer with status until Fail(0) is called.
func (a *API) Fail(status int) {
	a.failStatus.Store(int32(status))
}

// Paginate makes the list endpoint return pages of size n; 0 returns a bare array.
func (a *API) Paginate(n int) {
	a.pageSize.Store(int32(n))
}

// Routes returns the router of the API.
func (a *API) Routes() http.Handler {
	r := server.NewChiRouter(a.logger)
	r.Use(a.failing)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", a.FindAll)
		r.Post("/", a.Create)
		r.Post("/import", a.Import)
		r.Get("/export", a.Export)
		r.Get("/{id}", a.FindByID)
		r.Put("/{id}", a.Update)
		r.Delete("/{id}", a.DeleteByID)
	})
	return r
}

func (a *API) failing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status := int(a.failStatus.Load()); status != 0 {
			web.RespondError(w, a.logger, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FindAll lists products newest first.
func (a *API) FindAll(w http.ResponseWriter, r *http.Request) {
	list := a.store.FindAll()
	size := int(a.pageSize.Load())
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Invalid page_size number: %s", v))
			return
		}
		size = n
	}
	if size == 0 {
		web.RespondJSON(w, a.logger, http.StatusOK, list)
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			web.RespondError(w, a.logger, http.StatusBadRequest, fmt.Sprintf("Invalid page number: %s", v))
			return
		}
		page = n
	}
	totalPages := max(1, (len(list)+size-1)/size)
	start := min((page-1)*size, len(list))
	end := min(start+size, len(list))
	web.RespondJSON(w, a.logger, http.StatusOK, map[string]any{
		"items":       list[start:end],
		"total_pages": totalPages,
	})
}

// FindByID retrieves a product by its ID.
func (a *API) FindByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	found, err := a.store.FindByID(id)
	if err != nil {
		a.respondStoreError(w, id, err)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (a *API) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := a.decode(w, r)
	if !ok {
		return
	}
	created, err := a.store.Create(p)
	if err != nil {
		a.respondStoreError(w, "", err)
		return
	}
	a.logger.InfoContext(r.Context(), "Product created", "ID", created.ID)
	web.RespondJSON(w, a.logger, http.StatusCreated, created)
}

// Update replaces a product.
func (a *API) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := a.decode(w, r)
	if !ok {
		return
	}
	updated, err := a.store.Update(id, p)
	if err != nil {
		a.respondStoreError(w, id, err)
		return
	}
	web.RespondJSON(w, a.logger, http.StatusOK, updated)
}

// DeleteByID deletes a product by its ID.
func (a *API) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.DeleteByID(id); err != nil {
		a.respondStoreError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import merges a JSON array of products into the store by SKU.
func (a *API) Import(w http.ResponseWriter, r *http.Request) {
	var items []catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		web.RespondError(w, a.logger, http.StatusBadRequest, "expect array")
		return
	}
	summary := a.store.Import(items)
	a.logger.InfoContext(r.Context(), "Products imported", "created", summary.Created, "merged", summary.Merged)
	web.RespondJSON(w, a.logger, http.StatusOK, map[string]any{
		"ok":      true,
		"created": summary.Created,
		"merged":  summary.Merged,
		"total":   summary.Total,
	})
}

// Export returns every product as an indented JSON array.
func (a *API) Export(w http.ResponseWriter, _ *http.Request) {
	data, err := json.MarshalIndent(a.store.FindAll(), "", "  ")
	if err != nil {
		web.RespondError(w, a.logger, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

type requiredFields struct {
	Model   string `validate:"required"`
	Quality string `validate:"required"`
	Stock   int64  `validate:"gte=0"`
}

func (a *API) decode(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		web.RespondError(w, a.logger, http.StatusBadRequest, "Invalid request body")
		return catalog.Product{}, false
	}
	err := a.validate.Struct(requiredFields{Model: p.Model, Quality: p.Quality, Stock: int64(p.Stock)})
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			web.RespondError(w, a.logger, http.StatusBadRequest, "Invalid request body")
			return catalog.Product{}, false
		}
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		web.RespondJSON(w, a.logger, http.StatusBadRequest, map[string]any{
			"error":             "Invalid product",
			"validation_errors": errorResponse,
		})
		return catalog.Product{}, false
	}
	return p, true
}

func (a *API) respondStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, ErrProductNotFound) {
		web.RespondError(w, a.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", id))
		return
	}
	web.RespondError(w, a.logger, http.StatusInternalServerError, err.Error())
}
