package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/liubaotong/favsync/internal/devserver"
	"github.com/liubaotong/favsync/internal/favorites"
)

type env struct {
	serverURL   string
	settingsDir string
}

func newEnv(t *testing.T) env {
	t.Helper()
	store, err := devserver.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(devserver.Router(store))
	t.Cleanup(srv.Close)
	return env{serverURL: srv.URL, settingsDir: t.TempDir()}
}

// run executes favsync with args against the env's server.
func (e env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(Config{SettingsDir: e.settingsDir})
	cmd.SetArgs(append([]string{"--server", e.serverURL}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("favsync %v: %v", args, err)
	}
	return out
}

func TestAddListRemove(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "add", "--text", "Go blog", "--url", "https://go.dev/blog", "--tag", "go", "--tag", "web")
	var item favorites.Item
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		t.Fatalf("decode add output %q: %v", out, err)
	}
	if item.ID == 0 || item.Text != "Go blog" || len(item.Tags) != 2 {
		t.Fatalf("added = %#v", item)
	}

	var list listOutput
	out = e.mustRun(t, "list", "--search", "blog")
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list output: %v", err)
	}
	if list.Total != 1 || list.Items[0].ID != item.ID || list.Filter.Search != "blog" {
		t.Fatalf("list = %#v", list)
	}
	if list.Pagination.Label != "page 1 of 1" {
		t.Fatalf("pagination = %#v", list.Pagination)
	}

	// Declining the prompt keeps the item.
	out, err := e.run(t, "n\n", "rm", fmt.Sprint(item.ID))
	if err != nil {
		t.Fatalf("rm: %v", err)
	}
	if !strings.Contains(out, `"deleted":false`) {
		t.Fatalf("declined rm output = %s", out)
	}

	out = e.mustRun(t, "rm", "--yes", fmt.Sprint(item.ID))
	if !strings.Contains(out, `"deleted":true`) {
		t.Fatalf("rm output = %s", out)
	}
	out = e.mustRun(t, "list")
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list output: %v", err)
	}
	if list.Total != 0 || len(list.Items) != 0 {
		t.Fatalf("list after rm = %#v", list)
	}
}

func TestAdd_BlankTextFails(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "", "add", "--text", "   "); err == nil {
		t.Fatalf("blank add succeeded")
	}
}

func TestList_RejectsBadPageSize(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "", "list", "--per-page", "15"); err == nil {
		t.Fatalf("per-page 15 accepted")
	}
}

func TestEdit(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "tags", "add", "go")
	out := e.mustRun(t, "add", "--text", "draft", "--tag", "old")
	var item favorites.Item
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}

	e.mustRun(t, "edit", fmt.Sprint(item.ID), "--text", "final", "--toggle-tag", "go")

	var list listOutput
	if err := json.Unmarshal([]byte(e.mustRun(t, "list")), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	got := list.Items[0]
	if got.Text != "final" || strings.Join(got.Tags, ",") != "old,go" {
		t.Fatalf("edited = %#v", got)
	}

	if _, err := e.run(t, "", "edit", "999", "--text", "x"); err == nil {
		t.Fatalf("editing a missing favorite succeeded")
	}
}

func TestCatalogCommands(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "categories", "add", "work")
	out := e.mustRun(t, "categories", "add", "reading")

	var entries []favorites.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[1].Name != "reading" {
		t.Fatalf("entries = %#v", entries)
	}

	e.mustRun(t, "categories", "rename", fmt.Sprint(entries[0].ID), "job")
	e.mustRun(t, "categories", "rm", "-y", fmt.Sprint(entries[1].ID))

	if err := json.Unmarshal([]byte(e.mustRun(t, "categories", "list")), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "job" {
		t.Fatalf("entries = %#v", entries)
	}

	if _, err := e.run(t, "", "categories", "add", "job"); err == nil {
		t.Fatalf("duplicate category accepted")
	}
}

func TestConfigServerURL(t *testing.T) {
	dir := t.TempDir()
	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRootCmd(Config{SettingsDir: dir})
		cmd.SetArgs(args)
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	var got configOutput
	out, err := run("config", "get", "server-url")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = json.Unmarshal([]byte(out), &got)
	if got.Stored != "" || got.Effective != "http://localhost:3000" {
		t.Fatalf("defaults = %#v", got)
	}

	if _, err := run("config", "set", "server-url", "http://nas.local:8080/"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err = run("config", "get", "server-url")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = json.Unmarshal([]byte(out), &got)
	if got.Stored != "http://nas.local:8080" || got.Effective != "http://nas.local:8080" {
		t.Fatalf("after set = %#v", got)
	}

	if _, err := run("config", "set", "server-url", "ftp://x"); err == nil {
		t.Fatalf("non-http url accepted")
	}
	if _, err := run("config", "get", "colour"); err == nil {
		t.Fatalf("unknown key accepted")
	}
}

func TestHealthCommand(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "health")
	if !strings.Contains(out, `"status":"ok"`) {
		t.Fatalf("health output = %s", out)
	}
}

type pagedLister struct {
	items []favorites.Item
	calls int
}

func (p *pagedLister) ListFavorites(ctx context.Context, f favorites.Filter) (favorites.Page, error) {
	p.calls++
	start := (f.Page - 1) * f.PageSize
	end := start + f.PageSize
	if start > len(p.items) {
		start = len(p.items)
	}
	if end > len(p.items) {
		end = len(p.items)
	}
	return favorites.Page{Items: p.items[start:end], Total: len(p.items)}, nil
}

func TestFindFavorite_WalksPages(t *testing.T) {
	l := &pagedLister{}
	for i := 1; i <= 250; i++ {
		l.items = append(l.items, favorites.Item{ID: int64(i)})
	}

	it, err := findFavorite(context.Background(), l, 230)
	if err != nil || it.ID != 230 {
		t.Fatalf("find = %#v, %v", it, err)
	}
	if l.calls != 3 {
		t.Fatalf("calls = %d, want 3", l.calls)
	}

	l.calls = 0
	if _, err := findFavorite(context.Background(), l, 999); err == nil {
		t.Fatalf("missing id found")
	}
	if l.calls != 3 {
		t.Fatalf("calls = %d, want 3", l.calls)
	}
}

func TestParseIDArg(t *testing.T) {
	for _, bad := range []string{"", "abc", "0", "-2"} {
		if _, err := parseIDArg(bad); err == nil {
			t.Errorf("parseIDArg(%q) accepted", bad)
		}
	}
	if id, err := parseIDArg(" 12 "); err != nil || id != 12 {
		t.Fatalf("parseIDArg(12) = %d, %v", id, err)
	}
}
