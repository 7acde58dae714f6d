package editsession

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/logging"
	"github.com/liubaotong/favsync/internal/notify"
)

// DefaultSaveDelay keeps the success message readable before the row
// refreshes.
const DefaultSaveDelay = 2 * time.Second

// Collection saves items and refreshes the list.
type Collection interface {
	Save(ctx context.Context, id int64, d favorites.Draft) (*favorites.Item, error)
	Reload(ctx context.Context) error
}

// Catalogs provides the selectable categories and tags.
type Catalogs interface {
	ListCategories(ctx context.Context) ([]favorites.Category, error)
	ListTags(ctx context.Context) ([]favorites.Tag, error)
}

// Manager owns the open sessions, at most one per item id.
type Manager struct {
	coll      Collection
	catalogs  Catalogs
	notifier  notify.Notifier
	saveDelay time.Duration
	baseCtx   context.Context
	onChange  func()

	// ctx is derived from baseCtx and cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[int64]*Session
	closed   bool
	pending  sync.WaitGroup
}

type Option func(*Manager)

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithSaveDelay sets the pause between a successful save and the reload.
// Zero reloads immediately.
func WithSaveDelay(d time.Duration) Option {
	return func(m *Manager) { m.saveDelay = d }
}

// WithContext sets the context for background work: catalog loading and the
// delayed reload.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) { m.baseCtx = ctx }
}

// WithOnChange registers fn to run when background work changes a session.
func WithOnChange(fn func()) Option {
	return func(m *Manager) { m.onChange = fn }
}

func NewManager(coll Collection, catalogs Catalogs, opts ...Option) *Manager {
	m := &Manager{
		coll:      coll,
		catalogs:  catalogs,
		notifier:  notify.Discard,
		saveDelay: DefaultSaveDelay,
		baseCtx:   context.Background(),
		sessions:  map[int64]*Session{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(m.baseCtx)
	return m
}

// Open starts editing item. The session is usable at once; catalogs load
// in the background.
func (m *Manager) Open(item favorites.Item) (*Session, error) {
	m.mu.Lock()
	if _, ok := m.sessions[item.ID]; ok {
		m.mu.Unlock()
		return nil, ErrSessionOpen
	}
	s := newSession(item)
	m.sessions[item.ID] = s
	m.mu.Unlock()

	go m.loadCatalogs(s)
	return s, nil
}

func (m *Manager) loadCatalogs(s *Session) {
	var (
		categories []favorites.Category
		tags       []favorites.Tag
	)
	g, ctx := errgroup.WithContext(m.ctx)
	g.Go(func() error {
		var err error
		categories, err = m.catalogs.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = m.catalogs.ListTags(ctx)
		return err
	})
	err := g.Wait()
	if err != nil {
		logging.Error("load catalogs for edit", err, map[string]interface{}{"id": s.ID()})
		m.notifier.Notify("Failed to load categories and tags: "+apperr.Message(err), notify.Error)
		categories, tags = nil, nil
	}
	s.setCatalogs(categories, tags, err)
	m.changed()
}

// Get returns the open session for id, or nil.
func (m *Manager) Get(id int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Active returns the ids with an open session, ascending.
func (m *Manager) Active() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Save sends the pending edits of session id. Blank text is rejected
// locally. On failure the session returns to Editing with the error and the
// pending edits intact. On success it closes and the collection reloads
// after the save delay.
func (m *Manager) Save(ctx context.Context, id int64) error {
	s := m.Get(id)
	if s == nil {
		return ErrNoSession
	}
	d, err := s.beginSave()
	if err != nil {
		return err
	}

	if err := favorites.ValidateText(d.Text); err != nil {
		s.fail(err)
		return err
	}

	if _, err := m.coll.Save(ctx, id, d); err != nil {
		logging.Error("save edit session", err, map[string]interface{}{"id": id})
		s.fail(err)
		m.notifier.Notify("Save failed: "+apperr.Message(err), notify.Error)
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	if err := s.finish(); err != nil {
		return err
	}

	m.notifier.Notify("Saved", notify.Success)
	m.scheduleReload()
	return nil
}

// Cancel drops session id without saving. Only an editing session can be
// cancelled.
func (m *Manager) Cancel(id int64) error {
	s := m.Get(id)
	if s == nil {
		return ErrNoSession
	}
	if err := s.close(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *Manager) scheduleReload() {
	if m.saveDelay <= 0 {
		m.reload()
		return
	}
	m.pending.Add(1)
	time.AfterFunc(m.saveDelay, func() {
		defer m.pending.Done()
		m.reload()
	})
}

func (m *Manager) reload() {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	// The collection reports its own failures.
	_ = m.coll.Reload(m.ctx)
	m.changed()
}

// Wait blocks until every scheduled post-save reload has run.
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Close drops all sessions and stops background catalog loads. Scheduled
// reloads become no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.sessions = map[int64]*Session{}
	m.mu.Unlock()
	m.cancel()
}

func (m *Manager) changed() {
	if m.onChange != nil {
		m.onChange()
	}
}
