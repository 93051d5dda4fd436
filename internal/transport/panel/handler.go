// Package panel serves the product list view as server-rendered HTML pages.
package panel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/listview"
	"github.com/abgdnv/catalogadmin/internal/session"
	"github.com/abgdnv/catalogadmin/pkg/web"
	"github.com/go-chi/chi/v5"
)

// BasePath is where the products page is mounted.
const BasePath = "/admin/products"

// Sessions hands out the per-browser session.
type Sessions interface {
	Get(ctx context.Context, id string) *session.Session
}

type Handler struct {
	sessions     Sessions
	logger       *slog.Logger
	secureCookie bool
}

// NewHandler creates the products page handler. secureCookie marks the session cookie Secure.
func NewHandler(sessions Sessions, logger *slog.Logger, secureCookie bool) *Handler {
	return &Handler{
		sessions:     sessions,
		logger:       logger.With("component", "panel"),
		secureCookie: secureCookie,
	}
}

// MountRoutes registers the products page routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route(BasePath, func(r chi.Router) {
		r.Use(h.withSession)
		r.Get("/", h.List)
		r.Get("/view.json", h.ViewJSON)
		r.Get("/prev", h.Prev)
		r.Get("/next", h.Next)
		r.Post("/reload", h.Reload)
		r.Get("/new", h.New)
		r.Post("/save", h.Save)
		r.Post("/cancel", h.Cancel)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/edit", h.Edit)
			r.Get("/delete", h.ConfirmDelete)
			r.Post("/delete", h.Delete)
		})
	})
}

type pageData struct {
	listview.Table
	Alerts []string
}

type confirmData struct {
	ID      string
	Prompt  string
	Product *listview.Row
}

// List renders the products page. Filter bar values in the query string are applied
// first; the page goes back to 1 when any of them changed.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sess := h.loadedSession(r)
	query := r.URL.Query()
	if hasControls(query) {
		current := sess.View.State()
		sess.View.Apply(listview.Controls{
			Search:   query.Get("q"),
			Brand:    query.Get("brand"),
			Quality:  query.Get("quality"),
			Sort:     listview.SortKey(query.Get("sort")),
			PageSize: web.FormInt(r, "page_size", current.PageSize),
		})
	}
	if query.Has("page") {
		sess.View.GoTo(web.FormInt(r, "page", 1))
	}

	data := pageData{Table: sess.View.Render(), Alerts: sess.Flash.Pop()}
	h.render(w, r, "products.html", data)
}

// ViewJSON returns the render model of the current page.
func (h *Handler) ViewJSON(w http.ResponseWriter, r *http.Request) {
	sess := h.loadedSession(r)
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, toViewJSON(sess.View.Render()))
}

// Prev goes one page back.
func (h *Handler) Prev(w http.ResponseWriter, r *http.Request) {
	h.loadedSession(r).View.Prev()
	web.Redirect(w, r, BasePath)
}

// Next goes one page forward.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.loadedSession(r).View.Next()
	web.Redirect(w, r, BasePath)
}

// Reload refreshes the cache from the Product API.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	_ = h.session(r).View.Load(r.Context())
	web.Redirect(w, r, BasePath)
}

// New opens the form for a new product.
func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	h.session(r).View.Add()
	web.Redirect(w, r, BasePath)
}

// Edit opens the form for an existing product.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	id := pathID(r)
	h.loggerWithReqID(r).DebugContext(r.Context(), "Received request to edit product", "ID", id)
	_ = sess.View.Edit(r.Context(), id)
	web.Redirect(w, r, BasePath)
}

// Save submits the open form.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	if err := r.ParseForm(); err != nil {
		sess.Flash.Alert(r.Context(), "Invalid form submission")
		web.Redirect(w, r, BasePath)
		return
	}
	err := sess.View.Save(r.Context(), formFromRequest(r))
	if errors.Is(err, listview.ErrModalClosed) {
		sess.Flash.Alert(r.Context(), "The form is no longer open, nothing was saved")
	}
	web.Redirect(w, r, BasePath)
}

// Cancel closes the form.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.session(r).View.Cancel()
	web.Redirect(w, r, BasePath)
}

// ConfirmDelete asks the user to confirm a deletion.
func (h *Handler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	sess := h.loadedSession(r)
	id := pathID(r)
	data := confirmData{ID: id, Prompt: listview.DeletePrompt}
	for _, row := range sess.View.Render().Rows {
		if row.ID == id {
			data.Product = &row
			break
		}
	}
	h.render(w, r, "confirm.html", data)
}

// Delete removes a product when the confirmation form was answered with yes.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	id := pathID(r)
	confirmed := r.FormValue("confirm") == "yes"
	_, _ = sess.View.Remove(r.Context(), id, func(context.Context, string) bool { return confirmed })
	web.Redirect(w, r, BasePath)
}

type sessionKey struct{}

// withSession resolves the caller's session, issuing the cookie when it is new, and tags
// the request context with its id.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(session.CookieName); err == nil {
			id = c.Value
		}
		sess := h.sessions.Get(r.Context(), id)
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     session.CookieName,
				Value:    sess.ID,
				Path:     "/admin",
				HttpOnly: true,
				Secure:   h.secureCookie,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := web.WithSessionID(r.Context(), sess.ID)
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) session(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

// loadedSession is session for pages that show records: the first one loads the view.
func (h *Handler) loadedSession(r *http.Request) *session.Session {
	sess := h.session(r)
	sess.Ensure(r.Context())
	return sess
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		h.loggerWithReqID(r).ErrorContext(r.Context(), "Error rendering page", "template", name, "error", err)
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID, _ := web.GetRequestID(r.Context())
	return h.logger.With("request_id", reqID)
}

var controlKeys = []string{"q", "brand", "quality", "sort", "page_size"}

func hasControls(query url.Values) bool {
	for _, key := range controlKeys {
		if query.Has(key) {
			return true
		}
	}
	return false
}

func pathID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return strings.TrimSpace(id)
}

func formFromRequest(r *http.Request) catalog.Form {
	return catalog.Form{
		Brand:    r.PostFormValue("brand"),
		Model:    r.PostFormValue("model"),
		Quality:  r.PostFormValue("quality"),
		Price:    r.PostFormValue("price"),
		Stock:    r.PostFormValue("stock"),
		Currency: r.PostFormValue("currency"),
		Vendor:   r.PostFormValue("vendor"),
		Photo:    r.PostFormValue("photo"),
		Type:     r.PostFormValue("type"),
		Tags:     r.PostFormValue("tags"),
		Specs:    r.PostFormValue("specs"),
		Active:   web.FormBool(r, "active"),
	}
}
