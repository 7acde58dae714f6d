// Package tui is the terminal favorites browser.
package tui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/catalog"
	"github.com/liubaotong/favsync/internal/collection"
	"github.com/liubaotong/favsync/internal/editsession"
	"github.com/liubaotong/favsync/internal/notify"
)

// Backend is everything the browser needs from the REST API.
type Backend interface {
	collection.Backend
	editsession.Catalogs
	catalog.Backend
}

type Options struct {
	PageSize int
	// Notifier receives every notification in addition to the on-screen
	// flash line and the log.
	Notifier notify.Notifier
}

// Run shows the browser until the user quits or ctx is cancelled.
func Run(ctx context.Context, api Backend, opts Options) error {
	var prog atomic.Pointer[tea.Program]
	refresh := func() {
		if p := prog.Load(); p != nil {
			// Callbacks may fire inside Update, which must not block on Send.
			go p.Send(refreshMsg{})
		}
	}

	flash := notify.NewFlash()
	flash.OnChange = refresh
	defer flash.Stop()

	sink := notify.Multi{flash, notify.LogNotifier{}}
	if opts.Notifier != nil {
		sink = append(sink, opts.Notifier)
	}

	coll := collection.New(api,
		collection.WithNotifier(sink),
		collection.WithOnChange(refresh),
		collection.WithPageSize(opts.PageSize),
		collection.WithContext(ctx),
	)
	defer coll.Close()

	edits := editsession.NewManager(coll, api,
		editsession.WithNotifier(sink),
		editsession.WithOnChange(refresh),
		editsession.WithContext(ctx),
	)
	defer edits.Close()

	m := newModel(ctx, coll, edits,
		catalog.New(api, apiclient.Categories, sink),
		catalog.New(api, apiclient.Tags, sink),
		flash,
	)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	prog.Store(p)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
