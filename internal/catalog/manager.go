// Package catalog manages the category and tag lists.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/collection"
	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/logging"
	"github.com/liubaotong/favsync/internal/notify"
)

// Backend is the catalog part of the REST API.
type Backend interface {
	ListEntries(ctx context.Context, r apiclient.Resource) ([]favorites.Entry, error)
	CreateEntry(ctx context.Context, r apiclient.Resource, name string) (*favorites.Entry, error)
	RenameEntry(ctx context.Context, r apiclient.Resource, id int64, name string) (*favorites.Entry, error)
	DeleteEntry(ctx context.Context, r apiclient.Resource, id int64) error
}

// Manager keeps the loaded list of one catalog and refreshes it after each
// change.
//
// Items reference tags by name, so renaming or deleting a tag leaves the old
// name on existing items. The server owns that; nothing here rewrites items.
type Manager struct {
	api      Backend
	resource apiclient.Resource
	notifier notify.Notifier

	mu      sync.Mutex
	entries []favorites.Entry
}

func New(api Backend, r apiclient.Resource, n notify.Notifier) *Manager {
	if n == nil {
		n = notify.Discard
	}
	return &Manager{api: api, resource: r, notifier: n}
}

func (m *Manager) Resource() apiclient.Resource { return m.resource }

// Entries returns the list from the last successful Load.
func (m *Manager) Entries() []favorites.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]favorites.Entry{}, m.entries...)
}

// Lookup finds a loaded entry by id.
func (m *Manager) Lookup(id int64) (favorites.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, true
		}
	}
	return favorites.Entry{}, false
}

func (m *Manager) Load(ctx context.Context) error {
	entries, err := m.api.ListEntries(ctx, m.resource)
	if err != nil {
		logging.Error("load catalog", err, map[string]interface{}{"resource": string(m.resource)})
		m.notifier.Notify(fmt.Sprintf("Failed to load %s: %s", m.resource, apperr.Message(err)), notify.Error)
		return err
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func (m *Manager) Add(ctx context.Context, name string) error {
	name, err := favorites.ValidateName(name)
	if err != nil {
		m.notifier.Notify(apperr.Message(err), notify.Error)
		return err
	}
	if _, err := m.api.CreateEntry(ctx, m.resource, name); err != nil {
		m.notifier.Notify("Add failed: "+apperr.Message(err), notify.Error)
		return err
	}
	m.notifier.Notify("Added", notify.Success)
	return m.Load(ctx)
}

func (m *Manager) Rename(ctx context.Context, id int64, name string) error {
	name, err := favorites.ValidateName(name)
	if err != nil {
		m.notifier.Notify(apperr.Message(err), notify.Error)
		return err
	}
	if _, err := m.api.RenameEntry(ctx, m.resource, id, name); err != nil {
		m.notifier.Notify("Update failed: "+apperr.Message(err), notify.Error)
		return err
	}
	m.notifier.Notify("Updated", notify.Success)
	return m.Load(ctx)
}

// Delete removes entry id once confirm agrees. It reports whether the
// delete was issued.
func (m *Manager) Delete(ctx context.Context, id int64, confirm collection.Confirmer) (bool, error) {
	if confirm == nil {
		return false, fmt.Errorf("delete %s entry: no confirmation gate", m.resource)
	}
	if !confirm.Confirm(fmt.Sprintf("Delete %s entry %d?", m.resource, id)) {
		return false, nil
	}
	if err := m.api.DeleteEntry(ctx, m.resource, id); err != nil {
		m.notifier.Notify("Delete failed: "+apperr.Message(err), notify.Error)
		return false, err
	}
	m.notifier.Notify("Deleted", notify.Success)
	return true, m.Load(ctx)
}
