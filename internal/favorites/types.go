package favorites

import (
	"strconv"
	"strings"
	"time"
)

// Item is one saved favorite. Tags hold tag names, not Tag ids; see wire.go
// for the JSON shape.
type Item struct {
	ID           int64
	Text         string
	URL          string
	CategoryID   *int64
	CategoryName string
	Tags         []string
	CreatedAt    time.Time
}

// Entry is a named catalog record. Categories and tags share the shape and
// the same endpoints under different paths.
type Entry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type (
	Category = Entry
	Tag      = Entry
)

// Page is one page of the filtered collection. Total counts every item
// matching the filter, not just the ones in Items.
type Page struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// Draft is the form state of a create or update. CategoryID holds the raw
// select value; anything that is not an integer means "no category".
type Draft struct {
	CategoryID string
	Text       string
	URL        string
	Tags       []string
}

// Payload converts the draft to the wire body shared by POST and PUT.
func (d Draft) Payload() Payload {
	tags := make([]string, len(d.Tags))
	copy(tags, d.Tags)
	return Payload{
		CategoryID: ParseID(d.CategoryID),
		Text:       d.Text,
		URL:        d.URL,
		Tags:       tags,
	}
}

// Payload is the request body of POST/PUT /api/favorites.
type Payload struct {
	CategoryID *int64   `json:"category_id"`
	Text       string   `json:"text"`
	URL        string   `json:"url"`
	Tags       []string `json:"tags"`
}

// Capture is what the capture trigger hands over: a selected snippet and the
// page it came from.
type Capture struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Draft returns a pre-filled draft for the capture.
func (c Capture) Draft() Draft {
	return Draft{Text: c.Text, URL: c.URL, Tags: []string{}}
}

// DraftFromItem returns the draft that reproduces item unchanged.
func DraftFromItem(item Item) Draft {
	d := Draft{Text: item.Text, URL: item.URL}
	if item.CategoryID != nil {
		d.CategoryID = strconv.FormatInt(*item.CategoryID, 10)
	}
	d.Tags = append([]string{}, item.Tags...)
	return d
}

// ParseID parses a select value into an id. Blank or non-numeric values
// yield nil.
func ParseID(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// apiItem is the raw item shape returned by the server.
type apiItem struct {
	ID           int64   `json:"id"`
	Text         string  `json:"text"`
	URL          string  `json:"url"`
	CategoryID   *int64  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Tags         tagList `json:"tags"`
	CreatedAt    string  `json:"created_at"`
}
