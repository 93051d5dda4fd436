package listview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/abgdnv/catalogadmin/internal/catalog"
)

var (
	// ErrModalClosed is returned by Save when no dialog is open.
	ErrModalClosed = errors.New("no product form is open")
	// ErrTransferUnsupported is returned by Import and Export when the API cannot do them.
	ErrTransferUnsupported = errors.New("the product API does not support import and export")
)

// DeletePrompt is the question asked before a record is deleted.
const DeletePrompt = "Delete this product?"

// ProductAPI is the part of the Product API the view needs.
type ProductAPI interface {
	// ListAll returns every record.
	ListAll(ctx context.Context) ([]catalog.Product, error)
	// Get returns a single record.
	Get(ctx context.Context, id string) (*catalog.Product, error)
	// Create adds a record and returns it as stored.
	Create(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	// Update replaces a record and returns it as stored.
	Update(ctx context.Context, id string, p catalog.Product) (*catalog.Product, error)
	// Delete removes a record.
	Delete(ctx context.Context, id string) error
}

// Transfer is the bulk part of the Product API. A ProductAPI that implements it enables
// Import and Export.
type Transfer interface {
	// Import merges records into the catalog by SKU.
	Import(ctx context.Context, products []catalog.Product) (*catalog.ImportSummary, error)
	// Export returns every record as stored.
	Export(ctx context.Context) ([]catalog.Product, error)
}

// Notifier shows a blocking alert to the user.
type Notifier interface {
	Alert(ctx context.Context, message string)
}

// ConfirmFunc asks the user an explicit yes/no question.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// View is the product list view. It owns the record cache, the filter/sort/page state and
// the edit dialog. State is only touched under mu; API calls run without holding it, so
// overlapping requests are possible and the last one to finish wins.
type View struct {
	api      ProductAPI
	notifier Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	cache  []catalog.Product
	loaded bool
	state  State
	modal  Modal
}

// New creates a view with an empty cache. Call Load to fill it.
func New(api ProductAPI, notifier Notifier, pageSize int, logger *slog.Logger) *View {
	return &View{
		api:      api,
		notifier: notifier,
		logger:   logger.With("component", "listview"),
		state:    NewState(pageSize),
	}
}

// Load replaces the cache with the full record set. On failure the user is alerted and the
// cache is left as it was.
func (v *View) Load(ctx context.Context) error {
	records, err := v.api.ListAll(ctx)
	if err != nil {
		v.logger.ErrorContext(ctx, "Error loading products", "error", err)
		v.alert(ctx, err)
		return err
	}
	records = catalog.ResolveAll(records)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.cache = records
	v.loaded = true
	v.clampLocked()
	v.logger.DebugContext(ctx, "Products loaded", "count", len(records))
	return nil
}

// Loaded reports whether at least one Load succeeded.
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Render returns the current page of the table.
func (v *View) Render() Table {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := Render(v.cache, v.state, v.modal)
	t.Loaded = v.loaded
	return t
}

// State returns a copy of the current selection.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Modal returns a copy of the dialog state.
func (v *View) Modal() Modal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modal
}

// SetSearch changes the search term and goes back to the first page.
func (v *View) SetSearch(term string) {
	v.update(func(s *State) { s.Search = term })
}

// SetBrand changes the brand filter ("" or "any" clears it) and goes back to the first page.
func (v *View) SetBrand(brand string) {
	v.update(func(s *State) { s.Brand = filterValue(brand) })
}

// SetQuality changes the quality filter ("" or "any" clears it) and goes back to the first page.
func (v *View) SetQuality(quality string) {
	v.update(func(s *State) { s.Quality = filterValue(quality) })
}

// SetSort changes the ordering and goes back to the first page.
func (v *View) SetSort(key SortKey) {
	v.update(func(s *State) { s.Sort = ParseSortKey(string(key)) })
}

// SetPageSize changes the page size and goes back to the first page. Non-positive sizes
// are ignored.
func (v *View) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	v.update(func(s *State) { s.PageSize = size })
}

// Apply takes a whole filter bar submission. The page is reset only when a control
// actually changed; it reports whether that happened.
func (v *View) Apply(c Controls) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := v.state
	next.Search = c.Search
	next.Brand = filterValue(c.Brand)
	next.Quality = filterValue(c.Quality)
	next.Sort = ParseSortKey(string(c.Sort))
	if c.PageSize > 0 {
		next.PageSize = c.PageSize
	}
	if next.Controls() == v.state.Controls() {
		return false
	}
	next.Page = 1
	v.state = next
	v.clampLocked()
	return true
}

// Next moves to the next page. It is a no-op on the last page.
func (v *View) Next() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Page >= v.totalPagesLocked() {
		return false
	}
	v.state.Page++
	return true
}

// Prev moves to the previous page. It is a no-op on the first page.
func (v *View) Prev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Page <= 1 {
		return false
	}
	v.state.Page--
	return true
}

// GoTo jumps to a page, clamped to the available range.
func (v *View) GoTo(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Page = ClampPage(page, v.totalPagesLocked())
}

// Add opens the dialog in create mode with default values.
func (v *View) Add() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modal.openCreate()
	v.state.EditingID = ""
}

// Edit opens the dialog for the record with the given id, pre-filled from the cache. A
// record missing from the cache is fetched from the API.
func (v *View) Edit(ctx context.Context, id string) error {
	record, ok := v.cached(id)
	if !ok {
		fetched, err := v.api.Get(ctx, id)
		if err != nil {
			v.logger.ErrorContext(ctx, "Error fetching product for edit", "ID", id, "error", err)
			v.alert(ctx, err)
			return err
		}
		record = catalog.Resolve(*fetched)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.modal.openEdit(id, catalog.FormFrom(record))
	v.state.EditingID = id
	return nil
}

// Cancel closes the dialog without saving.
func (v *View) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modal.close()
	v.state.EditingID = ""
}

// Save validates the submitted form and creates or updates the record, depending on the
// dialog mode. Validation failures never reach the API. On any failure the user is
// alerted and the dialog stays open with the submitted values; on success it closes and
// the cache is reloaded.
func (v *View) Save(ctx context.Context, form catalog.Form) error {
	v.mu.Lock()
	modal := v.modal
	v.mu.Unlock()
	if !modal.Open() {
		return ErrModalClosed
	}

	product, err := form.Product()
	if err != nil {
		v.logger.DebugContext(ctx, "Product form rejected", "error", err)
		v.keepOpen(form)
		v.alert(ctx, err)
		return err
	}

	if modal.Mode == ModalEdit {
		_, err = v.api.Update(ctx, modal.RecordID, product)
	} else {
		_, err = v.api.Create(ctx, product)
	}
	if err != nil {
		v.logger.ErrorContext(ctx, "Error saving product", "mode", modal.Mode.String(), "ID", modal.RecordID, "error", err)
		v.keepOpen(form)
		v.alert(ctx, err)
		return err
	}
	v.logger.InfoContext(ctx, "Product saved", "mode", modal.Mode.String(), "ID", modal.RecordID)

	v.Cancel()
	// the record was saved; a failed refresh has already been reported to the user
	_ = v.Load(ctx)
	return nil
}

// Remove deletes a record once the user confirmed it. Declining is not an error and
// leaves everything unchanged; the first return value reports whether the record was
// deleted.
func (v *View) Remove(ctx context.Context, id string, confirm ConfirmFunc) (bool, error) {
	if confirm == nil || !confirm(ctx, DeletePrompt) {
		v.logger.DebugContext(ctx, "Product deletion not confirmed", "ID", id)
		return false, nil
	}
	if err := v.api.Delete(ctx, id); err != nil {
		v.logger.ErrorContext(ctx, "Error deleting product", "ID", id, "error", err)
		v.alert(ctx, err)
		return false, err
	}
	v.logger.InfoContext(ctx, "Product deleted", "ID", id)
	_ = v.Load(ctx)
	return true, nil
}

// Import hands records to the API for a merge by SKU and reloads the cache, the same way
// a save does. Failures are alerted and leave the cache as it was.
func (v *View) Import(ctx context.Context, records []catalog.Product) (*catalog.ImportSummary, error) {
	t, ok := v.api.(Transfer)
	if !ok {
		v.alert(ctx, ErrTransferUnsupported)
		return nil, ErrTransferUnsupported
	}
	summary, err := t.Import(ctx, records)
	if err != nil {
		v.logger.ErrorContext(ctx, "Error importing products", "count", len(records), "error", err)
		v.alert(ctx, err)
		return nil, err
	}
	v.logger.InfoContext(ctx, "Products imported", "created", summary.Created, "merged", summary.Merged)
	_ = v.Load(ctx)
	return summary, nil
}

// Export returns every record as the API stores it. The cache is not touched.
func (v *View) Export(ctx context.Context) ([]catalog.Product, error) {
	t, ok := v.api.(Transfer)
	if !ok {
		v.alert(ctx, ErrTransferUnsupported)
		return nil, ErrTransferUnsupported
	}
	records, err := t.Export(ctx)
	if err != nil {
		v.logger.ErrorContext(ctx, "Error exporting products", "error", err)
		v.alert(ctx, err)
		return nil, err
	}
	return records, nil
}

func (v *View) cached(id string) (catalog.Product, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.cache {
		if string(p.ID) == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

func (v *View) keepOpen(form catalog.Form) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.modal.Open() {
		v.modal.keep(form)
	}
}

func (v *View) update(change func(s *State)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	change(&v.state)
	v.state.Page = 1
	v.clampLocked()
}

func (v *View) totalPagesLocked() int {
	return TotalPages(len(ApplyFilters(v.cache, v.state)), v.state.PageSize)
}

func (v *View) clampLocked() {
	v.state.Page = ClampPage(v.state.Page, v.totalPagesLocked())
}

func (v *View) alert(ctx context.Context, err error) {
	if v.notifier != nil {
		v.notifier.Alert(ctx, err.Error())
	}
}
