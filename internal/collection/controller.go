// Package collection keeps the local view of the remote favorites
// collection: filter and pagination state plus the current page.
package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/logging"
	"github.com/liubaotong/favsync/internal/notify"
)

// ErrStale is returned by Reload when a newer reload was issued before the
// response arrived. The response is discarded.
var ErrStale = errors.New("stale page response discarded")

// Backend is the part of the REST API the controller drives.
type Backend interface {
	ListFavorites(ctx context.Context, f favorites.Filter) (favorites.Page, error)
	CreateFavorite(ctx context.Context, p favorites.Payload) (*favorites.Item, error)
	UpdateFavorite(ctx context.Context, id int64, p favorites.Payload) (*favorites.Item, error)
	DeleteFavorite(ctx context.Context, id int64) error
}

type Controller struct {
	api      Backend
	notifier notify.Notifier
	onChange func()
	baseCtx  context.Context
	debounce *Debouncer

	mu       sync.Mutex
	filter   favorites.Filter
	page     favorites.Page
	lastPage int
	gen      uint64
}

type Option func(*Controller)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithOnChange registers fn to run after every applied page.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithDebounce sets the search quiet window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = NewDebouncer(d) }
}

// WithPageSize sets the initial page size. Unsupported sizes are ignored.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if favorites.ValidPageSize(n) {
			c.filter.PageSize = n
		}
	}
}

// WithContext sets the context used by debounced reloads.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.baseCtx = ctx }
}

func New(api Backend, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		notifier: notify.Discard,
		baseCtx:  context.Background(),
		debounce: NewDebouncer(DefaultSearchDebounce),
		filter:   favorites.DefaultFilter(),
		page:     favorites.Page{Items: []favorites.Item{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels a pending debounced search.
func (c *Controller) Close() {
	c.debounce.Cancel()
}

// Filter returns the current filter state.
func (c *Controller) Filter() favorites.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Items returns a copy of the cached page items.
func (c *Controller) Items() []favorites.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]favorites.Item, len(c.page.Items))
	copy(out, c.page.Items)
	return out
}

// Total returns the number of items matching the filter, as last reported.
func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Total
}

// LastPage returns the last valid page number, 0 when nothing matches.
func (c *Controller) LastPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPage
}

// Pagination returns the pager state for the view.
func (c *Controller) Pagination() favorites.Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return favorites.NewPagination(c.filter.Page, c.lastPage)
}

// Reload fetches the page for the current filter.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	gen, f := c.beginLocked()
	c.mu.Unlock()
	return c.fetch(ctx, gen, f, true)
}

// beginLocked takes a new generation for the current filter.
func (c *Controller) beginLocked() (uint64, favorites.Filter) {
	c.gen++
	return c.gen, c.filter
}

func (c *Controller) fetch(ctx context.Context, gen uint64, f favorites.Filter, allowStepBack bool) error {
	page, err := c.api.ListFavorites(ctx, f)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		logging.Debug("discarding stale page response", map[string]interface{}{"generation": gen, "page": f.Page})
		return ErrStale
	}
	if err != nil {
		c.mu.Unlock()
		logging.Error("reload favorites", err, map[string]interface{}{"page": f.Page})
		c.notifier.Notify("Failed to load favorites: "+apperr.Message(err), notify.Error)
		return err
	}

	if len(page.Items) > f.PageSize {
		logging.Warn("server returned more items than requested", map[string]interface{}{
			"per_page": f.PageSize,
			"items":    len(page.Items),
		})
		page.Items = page.Items[:f.PageSize]
	}
	if page.Items == nil {
		page.Items = []favorites.Item{}
	}
	c.page = page
	c.lastPage = favorites.LastPage(page.Total, f.PageSize)

	// The current page emptied out (e.g. its last row was deleted): step back
	// to the new last page.
	var (
		stepBack bool
		nextGen  uint64
		nextF    favorites.Filter
	)
	if allowStepBack && len(page.Items) == 0 && f.Page > 1 && c.lastPage >= 1 && f.Page > c.lastPage {
		c.filter.Page = c.lastPage
		nextGen, nextF = c.beginLocked()
		stepBack = true
	}
	c.mu.Unlock()

	c.changed()

	if stepBack {
		return c.fetch(ctx, nextGen, nextF, false)
	}
	return nil
}

// Patch is a partial filter update. Nil fields are left alone.
type Patch struct {
	Page       *int
	PageSize   *int
	Search     *string
	CategoryID *string
	TagID      *string
}

func (p Patch) onlyPage() bool {
	return p.Page != nil && p.PageSize == nil && p.Search == nil && p.CategoryID == nil && p.TagID == nil
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }

// SetFilter merges p into the filter and reloads. Page goes back to 1 unless
// the page is the only field in the patch, which is handled like SetPage.
func (c *Controller) SetFilter(ctx context.Context, p Patch) error {
	if p.PageSize != nil && !favorites.ValidPageSize(*p.PageSize) {
		return apperr.New(apperr.ErrValidation, fmt.Sprintf("unsupported page size %d", *p.PageSize))
	}
	if p.Page != nil && *p.Page < 1 {
		return apperr.New(apperr.ErrValidation, fmt.Sprintf("invalid page %d", *p.Page))
	}
	if p.onlyPage() {
		return c.SetPage(ctx, *p.Page)
	}

	c.mu.Lock()
	f := c.filter
	if p.PageSize != nil {
		f.PageSize = *p.PageSize
	}
	if p.Search != nil {
		f.Search = strings.TrimSpace(*p.Search)
	}
	if p.CategoryID != nil {
		f.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	if p.TagID != nil {
		f.TagID = strings.TrimSpace(*p.TagID)
	}
	f.Page = 1
	c.filter = f
	gen, f := c.beginLocked()
	c.mu.Unlock()

	return c.fetch(ctx, gen, f, true)
}

// SetPage moves to page n and reloads. Pages outside [1, LastPage()] are
// ignored; with nothing loaded yet only page 1 is accepted.
func (c *Controller) SetPage(ctx context.Context, n int) error {
	c.mu.Lock()
	if n < 1 || (c.lastPage >= 1 && n > c.lastPage) || (c.lastPage == 0 && n != 1) {
		c.mu.Unlock()
		return nil
	}
	c.filter.Page = n
	gen, f := c.beginLocked()
	c.mu.Unlock()

	return c.fetch(ctx, gen, f, true)
}

func (c *Controller) NextPage(ctx context.Context) error {
	return c.SetPage(ctx, c.Filter().Page+1)
}

func (c *Controller) PrevPage(ctx context.Context) error {
	return c.SetPage(ctx, c.Filter().Page-1)
}

// SearchChanged records a keystroke in the search box. Only the last change
// inside the debounce window is applied.
func (c *Controller) SearchChanged(text string) {
	c.debounce.Trigger(func() {
		_ = c.SetFilter(c.baseCtx, Patch{Search: &text})
	})
}

// SubmitSearch applies text at once, dropping any pending debounced change.
func (c *Controller) SubmitSearch(ctx context.Context, text string) error {
	c.debounce.Cancel()
	return c.SetFilter(ctx, Patch{Search: &text})
}

// SearchPending reports whether a debounced search is waiting to apply.
func (c *Controller) SearchPending() bool {
	return c.debounce.Pending()
}

// Create posts a new item and reloads. Failures are reported and leave the
// local state untouched.
func (c *Controller) Create(ctx context.Context, d favorites.Draft) (*favorites.Item, error) {
	if err := favorites.ValidateText(d.Text); err != nil {
		c.notifier.Notify(apperr.Message(err), notify.Error)
		return nil, err
	}
	item, err := c.api.CreateFavorite(ctx, d.Payload())
	if err != nil {
		logging.Error("create favorite", err)
		c.notifier.Notify("Save failed: "+apperr.Message(err), notify.Error)
		return nil, err
	}
	c.notifier.Notify("Saved", notify.Success)
	c.reloadAfterMutation(ctx)
	return item, nil
}

// Save puts d to item id without reloading.
func (c *Controller) Save(ctx context.Context, id int64, d favorites.Draft) (*favorites.Item, error) {
	if err := favorites.ValidateText(d.Text); err != nil {
		return nil, err
	}
	return c.api.UpdateFavorite(ctx, id, d.Payload())
}

// Update saves d to item id and reloads.
func (c *Controller) Update(ctx context.Context, id int64, d favorites.Draft) (*favorites.Item, error) {
	item, err := c.Save(ctx, id, d)
	if err != nil {
		logging.Error("update favorite", err, map[string]interface{}{"id": id})
		c.notifier.Notify("Save failed: "+apperr.Message(err), notify.Error)
		return nil, err
	}
	c.notifier.Notify("Saved", notify.Success)
	c.reloadAfterMutation(ctx)
	return item, nil
}

// Confirmer is the yes/no gate in front of destructive operations.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

// Remove deletes item id once confirm agrees, then reloads. It reports
// whether the delete was issued.
func (c *Controller) Remove(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	if confirm == nil {
		return false, errors.New("remove favorite: no confirmation gate")
	}
	if !confirm.Confirm(fmt.Sprintf("Delete favorite %d?", id)) {
		return false, nil
	}
	if err := c.api.DeleteFavorite(ctx, id); err != nil {
		logging.Error("delete favorite", err, map[string]interface{}{"id": id})
		c.notifier.Notify("Delete failed: "+apperr.Message(err), notify.Error)
		return false, err
	}
	c.notifier.Notify("Deleted", notify.Success)
	c.reloadAfterMutation(ctx)
	return true, nil
}

// reloadAfterMutation refreshes the page. A failed reload is already
// reported to the notifier and does not undo the mutation.
func (c *Controller) reloadAfterMutation(ctx context.Context) {
	if err := c.Reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		logging.Warn("reload after mutation failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
