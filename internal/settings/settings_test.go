package settings

import (
	"errors"
	"testing"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/logging"
)

func init() {
	logging.Discard()
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	if _, ok, err := s.Get(KeyServerURL); err != nil || ok {
		t.Fatalf("empty store Get = %v, %v", ok, err)
	}
	if err := s.Set(KeyServerURL, "http://a:1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyServerURL, "http://b:2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(KeyServerURL)
	if err != nil || !ok || v != "http://b:2" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(BackendFile, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	exerciseStore(t, s)

	// A second store over the same file sees the value.
	again, _ := Open(BackendFile, dir)
	if v, _, _ := again.Get(KeyServerURL); v != "http://b:2" {
		t.Fatalf("reopened value = %q", v)
	}
}

func TestBadgerStore(t *testing.T) {
	s, err := NewMemBadgerStore()
	if err != nil {
		t.Fatalf("NewMemBadgerStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(BackendBadger, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(KeyServerURL, "http://nas:3000"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(BackendBadger, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, ok, err := s.Get(KeyServerURL); err != nil || !ok || v != "http://nas:3000" {
		t.Fatalf("Get after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("etcd", t.TempDir()); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}

func TestConfig_BaseURLResolution(t *testing.T) {
	store := NewFileStore(t.TempDir() + "/settings.json")

	cfg := NewConfig(store, "")
	if got := cfg.BaseURL(); got != apiclient.DefaultBaseURL {
		t.Fatalf("default = %q", got)
	}

	if _, err := cfg.SetServerURL(" http://nas.local:3000/ "); err != nil {
		t.Fatalf("SetServerURL: %v", err)
	}
	if got := cfg.BaseURL(); got != "http://nas.local:3000" {
		t.Fatalf("stored = %q", got)
	}

	// Changes made through another handle show up on the next call.
	if err := store.Set(KeyServerURL, "http://other:4000"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := cfg.BaseURL(); got != "http://other:4000" {
		t.Fatalf("after external change = %q", got)
	}

	override := NewConfig(store, "http://override:1")
	if got := override.BaseURL(); got != "http://override:1" {
		t.Fatalf("override = %q", got)
	}
}

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "http://localhost:3000", want: "http://localhost:3000"},
		{in: "https://fav.example.com//", want: "https://fav.example.com"},
		{in: "   ", wantErr: apperr.ErrEmptyField},
		{in: "localhost:3000"},
		{in: "ftp://host"},
		{in: "/relative"},
	}
	for _, tt := range tests {
		got, err := NormalizeServerURL(tt.in)
		if tt.want != "" {
			if err != nil || got != tt.want {
				t.Errorf("NormalizeServerURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("NormalizeServerURL(%q) accepted", tt.in)
			continue
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("NormalizeServerURL(%q) err = %v, want %v", tt.in, err, tt.wantErr)
		}
		if tt.wantErr == nil && !apperr.Is(err, apperr.ErrValidation) {
			t.Errorf("NormalizeServerURL(%q) err = %v, want validation error", tt.in, err)
		}
	}
}

func TestConfig_WithoutStore(t *testing.T) {
	cfg := NewConfig(nil, "")
	if got := cfg.BaseURL(); got != apiclient.DefaultBaseURL {
		t.Fatalf("BaseURL = %q", got)
	}
	if v, err := cfg.StoredServerURL(); err != nil || v != "" {
		t.Fatalf("StoredServerURL = %q, %v", v, err)
	}
	if _, err := cfg.SetServerURL("http://nas.local:3000"); !errors.Is(err, ErrNoStore) {
		t.Fatalf("SetServerURL err = %v, want ErrNoStore", err)
	}
}
