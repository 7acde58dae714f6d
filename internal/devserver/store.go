package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/liubaotong/favsync/internal/favorites"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("name already exists")
)

// Uncategorized is the category name reported for items without a category.
const Uncategorized = "Uncategorized"

// Catalog names a name-only table.
type Catalog string

const (
	Categories Catalog = "categories"
	Tags       Catalog = "tags"
)

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS favorites (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category_id INTEGER,
	text TEXT NOT NULL,
	url TEXT NOT NULL,
	tags TEXT NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY (category_id) REFERENCES categories (id)
);
`

// Store keeps favorites, categories and tags in sqlite. Tags are stored on
// each favorite as a JSON array of names.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListQuery is a parsed favorites listing request. Zero IDs mean no filter.
type ListQuery struct {
	Page       int
	PerPage    int
	Search     string
	CategoryID int64
	TagID      int64
}

const itemColumns = `f.id, f.category_id, COALESCE(c.name, '') AS category_name, f.text, f.url, f.tags, f.created_at`

func (s *Store) ListFavorites(ctx context.Context, q ListQuery) (favorites.Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = favorites.DefaultPageSize
	}

	var (
		conds []string
		args  []any
	)
	if q.Search != "" {
		conds = append(conds, "f.text LIKE ?")
		args = append(args, "%"+q.Search+"%")
	}
	if q.CategoryID != 0 {
		conds = append(conds, "f.category_id = ?")
		args = append(args, q.CategoryID)
	}
	if q.TagID != 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(f.tags) j WHERE j.value = (SELECT name FROM tags WHERE id = ?))")
		args = append(args, q.TagID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorites f"+where, args...).Scan(&total); err != nil {
		return favorites.Page{}, fmt.Errorf("count favorites: %w", err)
	}

	query := "SELECT " + itemColumns + " FROM favorites f LEFT JOIN categories c ON f.category_id = c.id" +
		where + " ORDER BY f.id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, q.PerPage, (q.Page-1)*q.PerPage)...)
	if err != nil {
		return favorites.Page{}, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	items := []favorites.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return favorites.Page{}, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return favorites.Page{}, fmt.Errorf("list favorites: %w", err)
	}
	return favorites.Page{Items: items, Total: total}, nil
}

// FavoritesByTagName lists every favorite carrying tag name, newest first.
func (s *Store) FavoritesByTagName(ctx context.Context, name string) ([]favorites.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM favorites f LEFT JOIN categories c ON f.category_id = c.id"+
			" WHERE EXISTS (SELECT 1 FROM json_each(f.tags) j WHERE j.value = ?) ORDER BY f.id DESC", name)
	if err != nil {
		return nil, fmt.Errorf("list favorites by tag %q: %w", name, err)
	}
	defer rows.Close()

	items := []favorites.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favorites by tag %q: %w", name, err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (favorites.Item, error) {
	var (
		it         favorites.Item
		categoryID sql.NullInt64
		tags       string
		createdAt  string
	)
	if err := row.Scan(&it.ID, &categoryID, &it.CategoryName, &it.Text, &it.URL, &tags, &createdAt); err != nil {
		return favorites.Item{}, fmt.Errorf("scan favorite: %w", err)
	}
	if categoryID.Valid {
		id := categoryID.Int64
		it.CategoryID = &id
	} else {
		it.CategoryName = Uncategorized
	}
	it.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			return favorites.Item{}, fmt.Errorf("favorite %d: bad tags column: %w", it.ID, err)
		}
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		it.CreatedAt = t
	} else if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		it.CreatedAt = t
	}
	return it, nil
}

func (s *Store) GetFavorite(ctx context.Context, id int64) (favorites.Item, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM favorites f LEFT JOIN categories c ON f.category_id = c.id WHERE f.id = ?", id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return favorites.Item{}, ErrNotFound
	}
	return it, err
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func (s *Store) CreateFavorite(ctx context.Context, p favorites.Payload) (favorites.Item, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return favorites.Item{}, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO favorites (category_id, text, url, tags, created_at) VALUES (?, ?, ?, ?, ?)",
		nullableID(p.CategoryID), p.Text, p.URL, tags, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return favorites.Item{}, fmt.Errorf("insert favorite: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return favorites.Item{}, fmt.Errorf("insert favorite: %w", err)
	}
	return s.GetFavorite(ctx, id)
}

func (s *Store) UpdateFavorite(ctx context.Context, id int64, p favorites.Payload) (favorites.Item, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return favorites.Item{}, err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE favorites SET category_id = ?, text = ?, url = ?, tags = ? WHERE id = ?",
		nullableID(p.CategoryID), p.Text, p.URL, tags, id)
	if err != nil {
		return favorites.Item{}, fmt.Errorf("update favorite %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return favorites.Item{}, err
	}
	return s.GetFavorite(ctx, id)
}

func (s *Store) DeleteFavorite(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete favorite %d: %w", id, err)
	}
	return requireRow(res)
}

func (s *Store) ListEntries(ctx context.Context, c Catalog) ([]favorites.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM "+string(c)+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	out := []favorites.Entry{}
	for rows.Next() {
		var e favorites.Entry
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, c Catalog, id int64) (favorites.Entry, error) {
	var e favorites.Entry
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM "+string(c)+" WHERE id = ?", id).Scan(&e.ID, &e.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return favorites.Entry{}, ErrNotFound
	}
	if err != nil {
		return favorites.Entry{}, fmt.Errorf("get %s %d: %w", c, id, err)
	}
	return e, nil
}

func (s *Store) CreateEntry(ctx context.Context, c Catalog, name string) (favorites.Entry, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO "+string(c)+" (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return favorites.Entry{}, ErrConflict
		}
		return favorites.Entry{}, fmt.Errorf("insert into %s: %w", c, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return favorites.Entry{}, fmt.Errorf("insert into %s: %w", c, err)
	}
	return favorites.Entry{ID: id, Name: name}, nil
}

// RenameEntry renames one entry. Favorites keep the tag names they were
// saved with.
func (s *Store) RenameEntry(ctx context.Context, c Catalog, id int64, name string) (favorites.Entry, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE "+string(c)+" SET name = ? WHERE id = ?", name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return favorites.Entry{}, ErrConflict
		}
		return favorites.Entry{}, fmt.Errorf("rename %s %d: %w", c, id, err)
	}
	if err := requireRow(res); err != nil {
		return favorites.Entry{}, err
	}
	return favorites.Entry{ID: id, Name: name}, nil
}

// DeleteEntry removes one entry. Deleting a category detaches its favorites.
func (s *Store) DeleteEntry(ctx context.Context, c Catalog, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", c, id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM "+string(c)+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", c, id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if c == Categories {
		if _, err := tx.ExecContext(ctx, "UPDATE favorites SET category_id = NULL WHERE category_id = ?", id); err != nil {
			return fmt.Errorf("detach favorites from category %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// parseID reads a positive id, treating anything else as absent.
func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}
