package panel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/session"
	"github.com/abgdnv/catalogadmin/pkg/logger"
	"github.com/abgdnv/catalogadmin/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingAPI is an in-memory Product API that records mutating calls.
type recordingAPI struct {
	mu       sync.Mutex
	products []catalog.Product
	created  []catalog.Product
	deleted  []string
	err      error
	listed   int
}

func (a *recordingAPI) ListAll(context.Context) ([]catalog.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listed++
	return append([]catalog.Product(nil), a.products...), nil
}

func (a *recordingAPI) listCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listed
}

func (a *recordingAPI) Get(_ context.Context, id string) (*catalog.Product, error) {
	return nil, errors.New("product " + id + " not found")
}

func (a *recordingAPI) Create(_ context.Context, p catalog.Product) (*catalog.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	a.created = append(a.created, p)
	p.ID = "99"
	a.products = append(a.products, p)
	return &p, nil
}

func (a *recordingAPI) Update(_ context.Context, _ string, p catalog.Product) (*catalog.Product, error) {
	return &p, a.err
}

func (a *recordingAPI) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, id)
	return a.err
}

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "1", Brand: "apple", Model: "iPhone 13", Quality: "oled", Price: price("10"), Stock: 2, CreatedAt: 2},
		{ID: "2", Brand: "samsung", Model: "S21", Quality: "incell", Price: price("5"), Stock: 10, CreatedAt: 1},
	}
}

func price(s string) catalog.Price {
	d, _ := catalog.ParseDecimal(s)
	return catalog.NewPrice(d)
}

func setupServer(t *testing.T, api *recordingAPI) (*http.Client, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(api, 20, time.Hour, session.DefaultMaxSessions, logger)
	r := chi.NewRouter()
	NewHandler(store, logger, false).MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}, srv.URL + BasePath
}

func getBody(t *testing.T, client *http.Client, url string) string {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func postForm(t *testing.T, client *http.Client, url string, form url.Values) string {
	t.Helper()
	resp, err := client.PostForm(url, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "redirect should land on the list")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func getView(t *testing.T, client *http.Client, base string) viewJSON {
	t.Helper()
	var v viewJSON
	require.NoError(t, json.Unmarshal([]byte(getBody(t, client, base+"/view.json")), &v))
	return v
}

func TestHandler_List(t *testing.T) {
	// given
	client, base := setupServer(t, &recordingAPI{products: testProducts()})

	// when
	body := getBody(t, client, base)

	// then
	assert.Contains(t, body, `data-page="products"`)
	assert.Contains(t, body, "iPhone 13")
	assert.Contains(t, body, "S21")
	assert.Contains(t, body, `<span id="pageLabel">1 / 1</span>`)
	assert.Contains(t, body, `<span class="badge warn">2</span>`, "low stock is highlighted")
	assert.Contains(t, body, `id="empty" hidden`)
}

func TestHandler_Filters(t *testing.T) {
	testCases := []struct {
		name      string
		query     string
		wantIDs   []string
		wantEmpty bool
	}{
		{name: "brand is case-insensitive", query: "?brand=APPLE", wantIDs: []string{"1"}},
		{name: "search in model", query: "?q=s21", wantIDs: []string{"2"}},
		{name: "any brand", query: "?brand=any&sort=price_asc", wantIDs: []string{"2", "1"}},
		{name: "nothing matches", query: "?q=nokia", wantEmpty: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			client, base := setupServer(t, &recordingAPI{products: testProducts()})

			// when
			_ = getBody(t, client, base+"/"+tc.query)
			v := getView(t, client, base)

			// then
			ids := make([]string, 0, len(v.Items))
			for _, row := range v.Items {
				ids = append(ids, row.ID)
			}
			if tc.wantEmpty {
				assert.True(t, v.Empty)
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestHandler_Paging(t *testing.T) {
	// given
	client, base := setupServer(t, &recordingAPI{products: testProducts()})
	_ = getBody(t, client, base+"/?page_size=1")

	// when
	_ = getBody(t, client, base+"/next")
	afterNext := getView(t, client, base)
	_ = getBody(t, client, base+"/next")
	afterSecondNext := getView(t, client, base)

	// then
	assert.Equal(t, 2, afterNext.Page)
	require.Len(t, afterNext.Items, 1)
	assert.Equal(t, "2", afterNext.Items[0].ID)
	assert.Equal(t, 2, afterSecondNext.Page, "next on the last page is a no-op")
	assert.False(t, afterSecondNext.HasNext)

	// when: changing a control resets the page
	_ = getBody(t, client, base+"/?page_size=1&sort=model_asc")

	// then
	assert.Equal(t, 1, getView(t, client, base).Page)
}

func TestHandler_SaveWithEmptyModel(t *testing.T) {
	// given
	api := &recordingAPI{products: testProducts()}
	client, base := setupServer(t, api)
	_ = getBody(t, client, base+"/new")

	// when
	body := postForm(t, client, base+"/save", url.Values{"brand": {"apple"}, "quality": {"oled"}, "price": {"12"}})

	// then
	assert.Contains(t, body, `role="alert">please fill in Model</div>`)
	assert.Contains(t, body, `<dialog id="dlg" open>`, "the form stays open")
	assert.Contains(t, body, `value="apple"`, "submitted values are kept")
	assert.Empty(t, api.created)
	assert.Equal(t, "create", getView(t, client, base).Modal.Mode)
}

func TestHandler_SaveCreates(t *testing.T) {
	// given
	api := &recordingAPI{products: testProducts()}
	client, base := setupServer(t, api)
	_ = getBody(t, client, base+"/new")

	// when
	body := postForm(t, client, base+"/save", url.Values{
		"model": {"Note 10"}, "quality": {"orig"}, "price": {"7,5"}, "stock": {"3"}, "tags": {"a, b"}, "active": {"on"},
	})

	// then
	require.Len(t, api.created, 1)
	assert.Equal(t, "Note 10", api.created[0].Model)
	assert.Equal(t, "7.5", api.created[0].Price.String())
	assert.Equal(t, catalog.Tags{"a", "b"}, api.created[0].Tags)
	assert.NotContains(t, body, `<dialog`)
	assert.Contains(t, body, "Note 10", "the list is reloaded after saving")
}

func TestHandler_SaveApiFailureKeepsFormOpen(t *testing.T) {
	// given
	api := &recordingAPI{products: testProducts(), err: errors.New("price must be positive")}
	client, base := setupServer(t, api)
	_ = getBody(t, client, base+"/new")

	// when
	body := postForm(t, client, base+"/save", url.Values{"model": {"X"}, "quality": {"Y"}})

	// then
	assert.Contains(t, body, "price must be positive")
	assert.Contains(t, body, `<dialog id="dlg" open>`)
}

func TestHandler_EditAndCancel(t *testing.T) {
	// given
	client, base := setupServer(t, &recordingAPI{products: testProducts()})

	// when
	body := getBody(t, client, base+"/2/edit")

	// then
	assert.Contains(t, body, `<h2 id="dlgTitle">Edit #2</h2>`)
	assert.Contains(t, body, `value="S21"`)

	// when
	body = postForm(t, client, base+"/cancel", nil)

	// then
	assert.NotContains(t, body, `<dialog`)
}

func TestHandler_EditUnknownRecord(t *testing.T) {
	// given
	client, base := setupServer(t, &recordingAPI{products: testProducts()})

	// when
	body := getBody(t, client, base+"/42/edit")

	// then
	assert.Contains(t, body, "product 42 not found")
	assert.NotContains(t, body, `<dialog`)
}

func TestHandler_Delete(t *testing.T) {
	testCases := []struct {
		name        string
		confirm     string
		wantDeleted []string
	}{
		{name: "declined", confirm: "no", wantDeleted: nil},
		{name: "confirmed", confirm: "yes", wantDeleted: []string{"1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := &recordingAPI{products: testProducts()}
			client, base := setupServer(t, api)
			prompt := getBody(t, client, base+"/1/delete")
			require.Contains(t, prompt, "Delete this product?")
			require.Contains(t, prompt, "iPhone 13")

			// when
			_ = postForm(t, client, base+"/1/delete", url.Values{"confirm": {tc.confirm}})

			// then
			assert.Equal(t, tc.wantDeleted, api.deleted)
		})
	}
}

func TestHandler_SessionCookie(t *testing.T) {
	// given
	client, base := setupServer(t, &recordingAPI{products: testProducts()})
	_ = getBody(t, client, base+"/?brand=samsung")
	other, _ := setupServer(t, &recordingAPI{products: testProducts()})

	// when
	mine := getView(t, client, base)
	theirs := getView(t, other, base)

	// then
	assert.Equal(t, "samsung", mine.State.Brand)
	assert.Equal(t, "any", theirs.State.Brand, "a browser without the cookie gets its own view")
	u, _ := url.Parse(base)
	cookies := client.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.False(t, strings.Contains(cookies[0].Value, " "))
}

func TestHandler_LogsCarryRequestAndSession(t *testing.T) {
	// given
	var buf bytes.Buffer
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	store := session.NewStore(&recordingAPI{products: testProducts()}, 20, time.Hour, session.DefaultMaxSessions, log)
	r := chi.NewRouter()
	r.Use(web.RequestIDInjector)
	NewHandler(store, log, false).MountRoutes(r)
	req := httptest.NewRequest(http.MethodGet, BasePath+"/1/edit", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()

	// when
	r.ServeHTTP(rec, req)

	// then
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	var found bool
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		if record["msg"] != "Received request to edit product" {
			continue
		}
		found = true
		assert.Equal(t, "req-7", record["request_id"])
		assert.Equal(t, cookies[0].Value, record["session_id"])
	}
	assert.True(t, found)
}

func TestHandler_NewSessionLoadsOnFirstListPage(t *testing.T) {
	// given
	api := &recordingAPI{products: testProducts()}
	client, base := setupServer(t, api)

	// when
	postForm(t, client, base+"/cancel", nil)

	// then
	assert.Equal(t, 1, api.listCalls(), "only the list page the redirect lands on loads")

	// when
	getBody(t, client, base)

	// then
	assert.Equal(t, 1, api.listCalls(), "later pages reuse the cache")
}
