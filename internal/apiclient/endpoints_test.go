package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/devserver"
	"github.com/liubaotong/favsync/internal/favorites"
)

func newDevClient(t *testing.T) *Client {
	t.Helper()
	store, err := devserver.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(devserver.Router(store))
	t.Cleanup(srv.Close)
	return NewClient(StaticBaseURL(srv.URL))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		res     Result
		wantErr bool
		wantMsg string
	}{
		{name: "ok object", res: Result{Status: 200, Value: map[string]any{"id": 1.0}}},
		{name: "ok empty", res: Result{Status: 200}},
		{
			name:    "status with error payload",
			res:     Result{Status: 404, Value: map[string]any{"error": "Resource not found", "code": "NOT_FOUND"}},
			wantErr: true,
			wantMsg: "NOT_FOUND: Resource not found",
		},
		{
			name:    "error field on 200",
			res:     Result{Status: 200, Value: map[string]any{"error": "nope"}},
			wantErr: true,
			wantMsg: "nope",
		},
		{
			name:    "nested error object",
			res:     Result{Status: 400, Value: map[string]any{"error": map[string]any{"code": "BAD", "message": "bad input"}}},
			wantErr: true,
			wantMsg: "BAD: bad input",
		},
		{
			name:    "plain text failure",
			res:     Result{Status: 502, Value: "upstream down"},
			wantErr: true,
			wantMsg: "upstream down",
		},
		{
			name:    "bare status",
			res:     Result{Status: 500},
			wantErr: true,
			wantMsg: "Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(&tt.res)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			if !apperr.Is(err, apperr.ErrServer) {
				t.Fatalf("err = %v, want server error", err)
			}
			if got := apperr.Message(err); got != tt.wantMsg {
				t.Fatalf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestDecode_RejectsTextAndEmpty(t *testing.T) {
	var v map[string]any
	if err := Decode(&Result{Status: 200}, &v); !apperr.Is(err, apperr.ErrDecode) {
		t.Fatalf("empty body: err = %v", err)
	}
	if err := Decode(&Result{Status: 200, Raw: []byte("hi"), Value: "hi"}, &v); !apperr.Is(err, apperr.ErrDecode) {
		t.Fatalf("text body: err = %v", err)
	}
}

func TestListFavorites_TextBodyIsDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>proxy login</html>")
	}))
	defer srv.Close()

	_, err := NewClient(StaticBaseURL(srv.URL)).ListFavorites(context.Background(), favorites.DefaultFilter())
	if !apperr.Is(err, apperr.ErrDecode) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newDevClient(t)

	cat, err := c.CreateEntry(ctx, Categories, "reading")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	created, err := c.CreateFavorite(ctx, favorites.Payload{
		CategoryID: &cat.ID,
		Text:       "hello",
		URL:        "http://x",
		Tags:       []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("create favorite: %v", err)
	}
	if created == nil || created.ID == 0 {
		t.Fatalf("created = %#v", created)
	}

	page, err := c.ListFavorites(ctx, favorites.DefaultFilter())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("page = %#v", page)
	}
	got := page.Items[0]
	if got.Text != "hello" || got.URL != "http://x" {
		t.Fatalf("item = %#v", got)
	}
	if got.CategoryID == nil || *got.CategoryID != cat.ID || got.CategoryName != "reading" {
		t.Fatalf("category = %v %q", got.CategoryID, got.CategoryName)
	}
	if !reflect.DeepEqual(got.Tags, []string{"a", "b"}) {
		t.Fatalf("tags = %#v", got.Tags)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}

	if _, err := c.UpdateFavorite(ctx, got.ID, favorites.Payload{Text: "changed", URL: "http://x", Tags: []string{}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	page, err = c.ListFavorites(ctx, favorites.DefaultFilter())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Items[0].Text != "changed" || page.Items[0].CategoryID != nil || len(page.Items[0].Tags) != 0 {
		t.Fatalf("after update = %#v", page.Items[0])
	}

	if err := c.DeleteFavorite(ctx, got.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = c.DeleteFavorite(ctx, got.ID)
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) || appErr.Status != http.StatusNotFound {
		t.Fatalf("second delete err = %v, want 404", err)
	}
}

func TestEntries_RenameAndConflict(t *testing.T) {
	ctx := context.Background()
	c := newDevClient(t)

	tag, err := c.CreateEntry(ctx, Tags, "go")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.CreateEntry(ctx, Tags, "go"); !apperr.Is(err, apperr.ErrServer) {
		t.Fatalf("duplicate err = %v, want server error", err)
	}
	if _, err := c.RenameEntry(ctx, Tags, tag.ID, "golang"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	tags, err := c.ListTags(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "golang" {
		t.Fatalf("tags = %#v", tags)
	}
	if err := c.DeleteEntry(ctx, Tags, tag.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tags, _ = c.ListTags(ctx)
	if len(tags) != 0 {
		t.Fatalf("tags after delete = %#v", tags)
	}
}

func TestHealth(t *testing.T) {
	c := newDevClient(t)
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Status != "ok" {
		t.Fatalf("status = %q", h.Status)
	}
}

func TestProbe_RejectsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"degraded"}`)
	}))
	defer srv.Close()

	_, err := Probe(context.Background(), srv.URL)
	if !apperr.Is(err, apperr.ErrServer) {
		t.Fatalf("err = %v, want server error", err)
	}
	if got := apperr.Message(err); got != "status degraded" {
		t.Fatalf("message = %q", got)
	}
}

func TestItemDecode_AcceptsEncodedTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"total":1,"items":[{"id":4,"text":"t","url":"u","category_name":"x","tags":"[\"a\",\"b\"]"}]}`)
	}))
	defer srv.Close()

	page, err := NewClient(StaticBaseURL(srv.URL)).ListFavorites(context.Background(), favorites.DefaultFilter())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(page.Items[0].Tags, []string{"a", "b"}) {
		t.Fatalf("tags = %#v", page.Items[0].Tags)
	}
}
