// Package editsession implements inline editing of single favorites: one
// session per row, moving through Viewing, Editing and Saving.
package editsession

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/liubaotong/favsync/internal/favorites"
)

var (
	ErrSessionOpen = errors.New("an edit session is already open for this item")
	ErrNoSession   = errors.New("no edit session for this item")
	ErrNotEditing  = errors.New("edit session is not in the editing state")
	ErrNotSaving   = errors.New("edit session has no save in flight")
)

type State int

const (
	Viewing State = iota
	Editing
	Saving
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Choice is one selectable catalog entry.
type Choice struct {
	ID       int64
	Name     string
	Selected bool
}

// Session is the edit state of one row. Pending fields start as a copy of
// the base item and are only sent on Save.
type Session struct {
	mu    sync.Mutex
	base  favorites.Item
	state State
	err   error

	text       string
	categoryID string
	tags       []string

	categories   []favorites.Category
	tagCatalog   []favorites.Tag
	catalogErr   error
	catalogsDone chan struct{}
}

func newSession(item favorites.Item) *Session {
	d := favorites.DraftFromItem(item)
	return &Session{
		base:         item,
		state:        Editing,
		text:         d.Text,
		categoryID:   d.CategoryID,
		tags:         d.Tags,
		catalogsDone: make(chan struct{}),
	}
}

func (s *Session) ID() int64 { return s.base.ID }

// Base returns the item snapshot taken when the session opened.
func (s *Session) Base() favorites.Item { return s.base }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the inline error of the last failed save, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// CategoryID returns the pending category as a select value ("" for none).
func (s *Session) CategoryID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoryID
}

func (s *Session) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.tags...)
}

// Draft returns the pending edits as a draft. The URL is kept from the base
// item; it is read-only while editing.
func (s *Session) Draft() favorites.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftLocked()
}

func (s *Session) draftLocked() favorites.Draft {
	return favorites.Draft{
		CategoryID: s.categoryID,
		Text:       s.text,
		URL:        s.base.URL,
		Tags:       append([]string{}, s.tags...),
	}
}

func (s *Session) SetText(text string) error {
	return s.edit(func() { s.text = text })
}

// SetCategory sets the pending category from a select value.
func (s *Session) SetCategory(id string) error {
	return s.edit(func() { s.categoryID = strings.TrimSpace(id) })
}

func (s *Session) SetTags(tags []string) error {
	return s.edit(func() { s.tags = append([]string{}, tags...) })
}

// ToggleTag adds name to the pending tags, or removes it when present.
func (s *Session) ToggleTag(name string) error {
	return s.edit(func() {
		for i, t := range s.tags {
			if t == name {
				s.tags = append(s.tags[:i:i], s.tags[i+1:]...)
				return
			}
		}
		s.tags = append(s.tags, name)
	})
}

func (s *Session) edit(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return ErrNotEditing
	}
	fn()
	return nil
}

// WaitCatalogs blocks until the category and tag catalogs have loaded (or
// failed to). It returns the load error.
func (s *Session) WaitCatalogs(ctx context.Context) error {
	select {
	case <-s.catalogsDone:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.catalogErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CatalogsLoaded reports whether catalog loading has finished.
func (s *Session) CatalogsLoaded() bool {
	select {
	case <-s.catalogsDone:
		return true
	default:
		return false
	}
}

func (s *Session) setCatalogs(categories []favorites.Category, tags []favorites.Tag, err error) {
	s.mu.Lock()
	s.categories = categories
	s.tagCatalog = tags
	s.catalogErr = err
	s.mu.Unlock()
	close(s.catalogsDone)
}

// CategoryChoices lists the category catalog with the pending category
// selected by id. Empty until the catalogs have loaded.
func (s *Session) CategoryChoices() []Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Choice, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, Choice{
			ID:       c.ID,
			Name:     c.Name,
			Selected: strconv.FormatInt(c.ID, 10) == s.categoryID,
		})
	}
	return out
}

// TagChoices lists the tag catalog with pending tags selected by name, since
// items reference tags by name.
func (s *Session) TagChoices() []Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected := make(map[string]bool, len(s.tags))
	for _, t := range s.tags {
		selected[t] = true
	}
	out := make([]Choice, 0, len(s.tagCatalog))
	for _, t := range s.tagCatalog {
		out = append(out, Choice{ID: t.ID, Name: t.Name, Selected: selected[t.Name]})
	}
	return out
}

// OrphanTags returns pending tag names with no matching tag in the loaded
// catalog, e.g. after a tag was renamed. They are kept and saved as is.
func (s *Session) OrphanTags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tagCatalog) == 0 {
		return nil
	}
	known := make(map[string]bool, len(s.tagCatalog))
	for _, t := range s.tagCatalog {
		known[t.Name] = true
	}
	var out []string
	for _, t := range s.tags {
		if !known[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Session) beginSave() (favorites.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return favorites.Draft{}, ErrNotEditing
	}
	s.state = Saving
	s.err = nil
	return s.draftLocked(), nil
}

// fail returns to Editing with err shown inline. Pending edits stay.
func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Editing
	s.err = err
}

// finish ends a successful save.
func (s *Session) finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Saving {
		return ErrNotSaving
	}
	s.state = Viewing
	s.err = nil
	return nil
}

// close ends an edit without saving. A save in flight cannot be closed.
func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Saving {
		return ErrNotEditing
	}
	s.state = Viewing
	return nil
}
