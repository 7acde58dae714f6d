package favorites

import (
	"encoding/json"
	"strings"
	"time"
)

// tagList reads tags either as a JSON array or as a string holding one, which
// is how older servers store and return them.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		*t = names
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	if strings.TrimSpace(encoded) == "" {
		*t = nil
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &names); err != nil {
		return err
	}
	*t = names
	return nil
}

// UnmarshalJSON accepts the server's snake_case item shape.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw apiItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = convertItem(raw)
	return nil
}

// MarshalJSON writes the same snake_case shape the server uses, so items can
// be printed or cached and read back.
func (it Item) MarshalJSON() ([]byte, error) {
	raw := apiItem{
		ID:           it.ID,
		Text:         it.Text,
		URL:          it.URL,
		CategoryID:   it.CategoryID,
		CategoryName: it.CategoryName,
		Tags:         it.Tags,
	}
	if raw.Tags == nil {
		raw.Tags = []string{}
	}
	if !it.CreatedAt.IsZero() {
		raw.CreatedAt = it.CreatedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(raw)
}

func convertItem(raw apiItem) Item {
	it := Item{
		ID:           raw.ID,
		Text:         raw.Text,
		URL:          raw.URL,
		CategoryID:   raw.CategoryID,
		CategoryName: raw.CategoryName,
		Tags:         []string(raw.Tags),
	}
	if it.Tags == nil {
		it.Tags = []string{}
	}

	// created_at is RFC 3339 from the reference server, but sqlite's
	// datetime('now') format shows up on migrated rows.
	if raw.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			it.CreatedAt = t
		} else if t, err := time.Parse("2006-01-02 15:04:05", raw.CreatedAt); err == nil {
			it.CreatedAt = t
		}
	}

	return it
}
