package tui

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/catalog"
	"github.com/liubaotong/favsync/internal/collection"
	"github.com/liubaotong/favsync/internal/devserver"
	"github.com/liubaotong/favsync/internal/editsession"
	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/logging"
	"github.com/liubaotong/favsync/internal/notify"
)

func init() {
	logging.Discard()
}

func TestNextPageSize(t *testing.T) {
	tests := map[int]int{10: 20, 20: 50, 50: 100, 100: 10, 15: favorites.DefaultPageSize}
	for cur, want := range tests {
		if got := nextPageSize(cur); got != want {
			t.Errorf("nextPageSize(%d) = %d, want %d", cur, got, want)
		}
	}
}

func TestCycleID(t *testing.T) {
	ids := []int64{3, 7}
	tests := []struct {
		cur, want string
	}{
		{"", "3"},
		{"3", "7"},
		{"7", ""},
		{"99", ""},
	}
	for _, tt := range tests {
		if got := cycleID(ids, tt.cur); got != tt.want {
			t.Errorf("cycleID(%q) = %q, want %q", tt.cur, got, tt.want)
		}
	}
	if got := cycleID(nil, "3"); got != "" {
		t.Errorf("cycleID with no ids = %q", got)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, texts ...string) model {
	t.Helper()
	ctx := context.Background()
	store, err := devserver.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(devserver.Router(store))
	t.Cleanup(srv.Close)
	api := apiclient.NewClient(apiclient.StaticBaseURL(srv.URL))

	for _, text := range texts {
		if _, err := api.CreateFavorite(ctx, favorites.Payload{Text: text, Tags: []string{}}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	flash := notify.NewFlash()
	t.Cleanup(flash.Stop)
	coll := collection.New(api, collection.WithNotifier(flash))
	t.Cleanup(coll.Close)
	edits := editsession.NewManager(coll, api, editsession.WithNotifier(flash))
	t.Cleanup(edits.Close)

	m := newModel(ctx, coll, edits,
		catalog.New(api, apiclient.Categories, flash),
		catalog.New(api, apiclient.Tags, flash),
		flash,
	)
	if err := coll.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return m
}

func press(t *testing.T, m model, k string) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	return next.(model), cmd
}

func TestModel_DeleteFlow(t *testing.T) {
	m := newTestModel(t, "first", "second")

	m, _ = press(t, m, "j")
	if m.cursor != 1 {
		t.Fatalf("cursor = %d", m.cursor)
	}
	target := m.coll.Items()[1]

	m, _ = press(t, m, "d")
	if m.mode != modeConfirm || m.confirmID != target.ID {
		t.Fatalf("mode=%v confirm=%d", m.mode, m.confirmID)
	}
	if !strings.Contains(m.View(), "(y/n)") {
		t.Fatalf("confirm prompt not rendered")
	}

	// Anything but y backs out.
	m, cmd := press(t, m, "n")
	if m.mode != modeBrowse || cmd != nil {
		t.Fatalf("declined delete: mode=%v cmd=%v", m.mode, cmd != nil)
	}

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	if cmd == nil {
		t.Fatalf("no delete command")
	}
	done, ok := cmd().(opDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("delete result = %#v", done)
	}
	next, _ := m.Update(done)
	m = next.(model)

	if m.coll.Total() != 1 {
		t.Fatalf("total = %d", m.coll.Total())
	}
	if m.cursor != 0 {
		t.Fatalf("cursor not clamped: %d", m.cursor)
	}
	if msg, _ := m.flash.Current(); msg.Text != "Deleted" {
		t.Fatalf("flash = %#v", msg)
	}
}

func TestModel_EditAndCancel(t *testing.T) {
	m := newTestModel(t, "editable")

	m, _ = press(t, m, "e")
	if m.mode != modeEdit || m.session == nil {
		t.Fatalf("editor not open")
	}
	if m.editText.Value() != "editable" {
		t.Fatalf("edit text = %q", m.editText.Value())
	}

	m, _ = press(t, m, "!")
	if m.session.Text() != "editable!" {
		t.Fatalf("session text = %q", m.session.Text())
	}

	id := m.session.ID()
	m, _ = press(t, m, "esc")
	if m.mode != modeBrowse || m.session != nil {
		t.Fatalf("editor still open")
	}
	if m.edits.Get(id) != nil {
		t.Fatalf("session not released")
	}
}

func TestModel_SearchSubmit(t *testing.T) {
	m := newTestModel(t, "apple pie", "banana")

	m, _ = press(t, m, "/")
	if m.mode != modeSearch {
		t.Fatalf("mode = %v", m.mode)
	}
	m, _ = press(t, m, "pie")
	m, cmd := press(t, m, "enter")
	if m.mode != modeBrowse || cmd == nil {
		t.Fatalf("search not submitted")
	}
	if done := cmd().(opDoneMsg); done.err != nil {
		t.Fatalf("search: %v", done.err)
	}
	if m.coll.Total() != 1 || m.coll.Filter().Search != "pie" {
		t.Fatalf("total=%d filter=%#v", m.coll.Total(), m.coll.Filter())
	}
	if m.coll.SearchPending() {
		t.Fatalf("debounced search still pending after submit")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t)
	if !strings.Contains(m.View(), "No favorites.") {
		t.Fatalf("empty view = %q", m.View())
	}
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatalf("no quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q did not quit")
	}
}
