package collection

import (
	"context"
	"fmt"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/liubaotong/favsync/internal/apiclient"
	"github.com/liubaotong/favsync/internal/devserver"
	"github.com/liubaotong/favsync/internal/favorites"
)

func newServerController(t *testing.T, opts ...Option) (*Controller, *apiclient.Client) {
	t.Helper()
	store, err := devserver.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	srv := httptest.NewServer(devserver.Router(store))
	t.Cleanup(srv.Close)

	client := apiclient.NewClient(apiclient.StaticBaseURL(srv.URL))
	return New(client, opts...), client
}

func TestServer_CreateThenRefetch(t *testing.T) {
	ctx := context.Background()
	c, client := newServerController(t)

	for _, name := range []string{"one", "two", "three"} {
		if _, err := client.CreateEntry(ctx, apiclient.Categories, name); err != nil {
			t.Fatalf("create category: %v", err)
		}
	}

	_, err := c.Create(ctx, favorites.Draft{
		CategoryID: "3",
		Text:       "hello",
		URL:        "http://x",
		Tags:       []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	got := items[0]
	if got.Text != "hello" || got.URL != "http://x" {
		t.Fatalf("item = %#v", got)
	}
	if got.CategoryID == nil || *got.CategoryID != 3 || got.CategoryName != "three" {
		t.Fatalf("category = %v %q", got.CategoryID, got.CategoryName)
	}
	if !reflect.DeepEqual(got.Tags, []string{"a", "b"}) {
		t.Fatalf("tags = %#v", got.Tags)
	}
}

func TestServer_DeleteDropsTotal(t *testing.T) {
	ctx := context.Background()
	c, client := newServerController(t)

	for i := 1; i <= 12; i++ {
		if _, err := client.CreateFavorite(ctx, favorites.Payload{Text: fmt.Sprintf("item %d", i), Tags: []string{}}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if c.Total() != 12 {
		t.Fatalf("total = %d", c.Total())
	}

	if _, err := c.Remove(ctx, 7, AlwaysConfirm); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if c.Total() != 11 {
		t.Fatalf("total = %d, want 11", c.Total())
	}
	for _, it := range c.Items() {
		if it.ID == 7 {
			t.Fatalf("item 7 still listed")
		}
	}
}

func TestServer_FiltersByTag(t *testing.T) {
	ctx := context.Background()
	c, client := newServerController(t)

	tag, err := client.CreateEntry(ctx, apiclient.Tags, "go")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	seed := []favorites.Payload{
		{Text: "tagged", Tags: []string{"go", "web"}},
		{Text: "untagged", Tags: []string{}},
		{Text: "other tag", Tags: []string{"rust"}},
	}
	for _, p := range seed {
		if _, err := client.CreateFavorite(ctx, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tagID := fmt.Sprint(tag.ID)
	if err := c.SetFilter(ctx, Patch{TagID: &tagID}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if c.Total() != 1 || c.Items()[0].Text != "tagged" {
		t.Fatalf("tag filter: total=%d items=%#v", c.Total(), c.Items())
	}

	if err := c.SetFilter(ctx, Patch{TagID: Ptr(""), Search: Ptr("tag")}); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if c.Total() != 3 {
		t.Fatalf("search total = %d, want 3", c.Total())
	}
}
