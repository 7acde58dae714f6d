package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/logging"
)

type Handlers struct {
	store *Store
}

func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

func (h *Handlers) HandleListFavorites(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := ListQuery{
		Page:       atoiDefault(q.Get("page"), 1),
		PerPage:    atoiDefault(q.Get("per_page"), favorites.DefaultPageSize),
		Search:     strings.TrimSpace(q.Get("search")),
		CategoryID: parseID(q.Get("category_id")),
		TagID:      parseID(q.Get("tag_id")),
	}

	page, err := h.store.ListFavorites(r.Context(), lq)
	if err != nil {
		h.fail(w, "list favorites", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) HandleCreateFavorite(w http.ResponseWriter, r *http.Request) {
	p, ok := readPayload(w, r)
	if !ok {
		return
	}
	item, err := h.store.CreateFavorite(r.Context(), p)
	if err != nil {
		h.fail(w, "create favorite", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handlers) HandleUpdateFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := readPayload(w, r)
	if !ok {
		return
	}
	item, err := h.store.UpdateFavorite(r.Context(), id, p)
	if err != nil {
		h.fail(w, "update favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handlers) HandleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteFavorite(r.Context(), id); err != nil {
		h.fail(w, "delete favorite", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleFavoritesByTag(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "tag name is required")
		return
	}
	items, err := h.store.FavoritesByTagName(r.Context(), name)
	if err != nil {
		h.fail(w, "list favorites by tag", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func readPayload(w http.ResponseWriter, r *http.Request) (favorites.Payload, bool) {
	var p favorites.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body: "+err.Error())
		return p, false
	}
	if strings.TrimSpace(p.Text) == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "text is required")
		return p, false
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, true
}

// catalogHandlers serves one of the name-only tables.
type catalogHandlers struct {
	*Handlers
	catalog Catalog
}

func (h catalogHandlers) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListEntries(r.Context(), h.catalog)
	if err != nil {
		h.fail(w, "list "+string(h.catalog), err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h catalogHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.store.GetEntry(r.Context(), h.catalog, id)
	if err != nil {
		h.fail(w, "get "+string(h.catalog), err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h catalogHandlers) create(w http.ResponseWriter, r *http.Request) {
	name, ok := readName(w, r)
	if !ok {
		return
	}
	e, err := h.store.CreateEntry(r.Context(), h.catalog, name)
	if err != nil {
		h.fail(w, "create "+string(h.catalog), err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h catalogHandlers) rename(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	name, ok := readName(w, r)
	if !ok {
		return
	}
	e, err := h.store.RenameEntry(r.Context(), h.catalog, id, name)
	if err != nil {
		h.fail(w, "rename "+string(h.catalog), err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h catalogHandlers) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteEntry(r.Context(), h.catalog, id); err != nil {
		h.fail(w, "delete "+string(h.catalog), err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func readName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body: "+err.Error())
		return "", false
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "name is required")
		return "", false
	}
	return name, true
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		logging.Error("health check", err)
		writeJSON(w, http.StatusServiceUnavailable, favorites.Health{Status: "error", Message: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, favorites.Health{Status: "ok", Message: "favsync server is running"})
}

// fail maps store errors onto the {error, code} payload.
func (h *Handlers) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	default:
		logging.Error(op, err)
		writeError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Database error: "+err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id")
		return 0, false
	}
	return id, true
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
