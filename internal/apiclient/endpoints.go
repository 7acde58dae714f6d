package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/favorites"
)

// Resource is a catalog collection path under /api.
type Resource string

const (
	Categories Resource = "categories"
	Tags       Resource = "tags"
)

// Check interprets a completed exchange: a status of 400 or more, or a
// decoded object with an "error" field, is a server error.
func Check(res *Result) error {
	var code, msg string
	hasError := false

	switch v := res.Value.(type) {
	case map[string]any:
		code, _ = v["code"].(string)
		switch e := v["error"].(type) {
		case string:
			msg, hasError = e, e != ""
		case map[string]any:
			// {"success": false, "error": {"code": ..., "message": ...}}
			hasError = true
			msg, _ = e["message"].(string)
			if c, ok := e["code"].(string); ok && code == "" {
				code = c
			}
		}
		if msg == "" {
			msg, _ = v["message"].(string)
		}
	case string:
		if res.Status >= http.StatusBadRequest {
			msg = v
		}
	}

	if res.Status >= http.StatusBadRequest || hasError {
		return apperr.Server(res.Status, code, msg)
	}
	return nil
}

// Decode unmarshals the raw body into v. It fails with a decode error when
// the body is empty or not JSON.
func Decode(res *Result, v any) error {
	if len(res.Raw) == 0 {
		return apperr.New(apperr.ErrDecode, "empty response body")
	}
	if _, isText := res.Value.(string); isText {
		return apperr.New(apperr.ErrDecode, "response body is not JSON")
	}
	if err := json.Unmarshal(res.Raw, v); err != nil {
		return apperr.Wrap(apperr.ErrDecode, "decode response", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, path string, opts Options) (*Result, error) {
	res, err := c.Do(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if err := Check(res); err != nil {
		return nil, err
	}
	return res, nil
}

// optionalItem decodes an item from a mutation response. Servers may answer
// with an empty body or a bare status, in which case nil is returned.
func optionalItem(res *Result) (*favorites.Item, error) {
	if _, ok := res.Value.(map[string]any); !ok {
		return nil, nil
	}
	var it favorites.Item
	if err := Decode(res, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// ListFavorites fetches one page of the filtered collection.
func (c *Client) ListFavorites(ctx context.Context, f favorites.Filter) (favorites.Page, error) {
	res, err := c.call(ctx, "/api/favorites", Options{Query: f.Query()})
	if err != nil {
		return favorites.Page{}, fmt.Errorf("list favorites: %w", err)
	}
	var page favorites.Page
	if err := Decode(res, &page); err != nil {
		return favorites.Page{}, fmt.Errorf("list favorites: %w", err)
	}
	if page.Items == nil {
		page.Items = []favorites.Item{}
	}
	return page, nil
}

func (c *Client) CreateFavorite(ctx context.Context, p favorites.Payload) (*favorites.Item, error) {
	res, err := c.call(ctx, "/api/favorites", Options{Method: http.MethodPost, Body: p})
	if err != nil {
		return nil, fmt.Errorf("create favorite: %w", err)
	}
	return optionalItem(res)
}

func (c *Client) UpdateFavorite(ctx context.Context, id int64, p favorites.Payload) (*favorites.Item, error) {
	res, err := c.call(ctx, fmt.Sprintf("/api/favorites/%d", id), Options{Method: http.MethodPut, Body: p})
	if err != nil {
		return nil, fmt.Errorf("update favorite %d: %w", id, err)
	}
	return optionalItem(res)
}

func (c *Client) DeleteFavorite(ctx context.Context, id int64) error {
	if _, err := c.call(ctx, fmt.Sprintf("/api/favorites/%d", id), Options{Method: http.MethodDelete}); err != nil {
		return fmt.Errorf("delete favorite %d: %w", id, err)
	}
	return nil
}

// ListEntries lists every category or tag.
func (c *Client) ListEntries(ctx context.Context, r Resource) ([]favorites.Entry, error) {
	res, err := c.call(ctx, "/api/"+string(r), Options{})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r, err)
	}
	var entries []favorites.Entry
	if err := Decode(res, &entries); err != nil {
		return nil, fmt.Errorf("list %s: %w", r, err)
	}
	return entries, nil
}

// CreateEntry adds a category or tag. The created entry is returned when the
// server sends one back.
func (c *Client) CreateEntry(ctx context.Context, r Resource, name string) (*favorites.Entry, error) {
	res, err := c.call(ctx, "/api/"+string(r), Options{
		Method: http.MethodPost,
		Body:   map[string]string{"name": name},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s entry: %w", r, err)
	}
	return optionalEntry(res)
}

// RenameEntry renames a category or tag. The body repeats the id.
func (c *Client) RenameEntry(ctx context.Context, r Resource, id int64, name string) (*favorites.Entry, error) {
	res, err := c.call(ctx, fmt.Sprintf("/api/%s/%d", r, id), Options{
		Method: http.MethodPut,
		Body:   favorites.Entry{ID: id, Name: name},
	})
	if err != nil {
		return nil, fmt.Errorf("rename %s %d: %w", r, id, err)
	}
	return optionalEntry(res)
}

func (c *Client) DeleteEntry(ctx context.Context, r Resource, id int64) error {
	if _, err := c.call(ctx, fmt.Sprintf("/api/%s/%d", r, id), Options{Method: http.MethodDelete}); err != nil {
		return fmt.Errorf("delete %s %d: %w", r, id, err)
	}
	return nil
}

func optionalEntry(res *Result) (*favorites.Entry, error) {
	if _, ok := res.Value.(map[string]any); !ok {
		return nil, nil
	}
	var e favorites.Entry
	if err := Decode(res, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]favorites.Category, error) {
	return c.ListEntries(ctx, Categories)
}

func (c *Client) ListTags(ctx context.Context) ([]favorites.Tag, error) {
	return c.ListEntries(ctx, Tags)
}

// Health calls GET /api/health on the configured server.
func (c *Client) Health(ctx context.Context) (favorites.Health, error) {
	res, err := c.Do(ctx, "/api/health", Options{})
	if err != nil {
		return favorites.Health{}, err
	}

	var h favorites.Health
	if err := Decode(res, &h); err != nil {
		if res.Status >= http.StatusBadRequest {
			return favorites.Health{}, apperr.Server(res.Status, "", "")
		}
		return favorites.Health{}, err
	}
	if res.Status < http.StatusOK || res.Status >= http.StatusMultipleChoices || h.Status != "ok" {
		msg := h.Message
		if msg == "" && h.Status != "" {
			msg = "status " + h.Status
		}
		return h, apperr.Server(res.Status, "", msg)
	}
	return h, nil
}

// Probe checks a server that is not (yet) configured.
func Probe(ctx context.Context, baseURL string) (favorites.Health, error) {
	return NewClient(StaticBaseURL(baseURL)).Health(ctx)
}
