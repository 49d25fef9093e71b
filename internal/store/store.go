package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists synced CMS collections and their sync metadata.
type Store interface {
	// Items returns every item of a collection in the order it was synced.
	Items(ctx context.Context, collection string) ([]Item, error)
	// Item returns a single item, or ErrNotFound.
	Item(ctx context.Context, collection, id string) (Item, error)
	// ReplaceCollection swaps the full item set of a collection. Readers see
	// either the previous set or the new one, never a mix.
	ReplaceCollection(ctx context.Context, collection string, items []Item) error
	// Collections lists every collection that has been synced at least once.
	Collections(ctx context.Context) ([]CollectionSummary, error)
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(ctx context.Context, key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(ctx context.Context, key, value string) error
	// PutSchema stores the JSON Schema describing a collection.
	PutSchema(ctx context.Context, collection string, schema []byte) error
	// Schema returns the stored JSON Schema for a collection, or ErrNotFound.
	Schema(ctx context.Context, collection string) ([]byte, error)
	// Close releases the backend.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// New wraps an already initialized database handle.
func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Items(ctx context.Context, collection string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM items WHERE collection = ? ORDER BY position", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it := Item{Collection: collection}
		var data string
		if err := rows.Scan(&it.ID, &data); err != nil {
			return nil, err
		}
		it.Data = []byte(data)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Item(ctx context.Context, collection, id string) (Item, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM items WHERE collection = ? AND id = ?", collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Item{}, err
	}
	return Item{ID: id, Collection: collection, Data: []byte(data)}, nil
}

// ReplaceCollection deletes and re-inserts the collection inside one
// transaction; a failed insert rolls back to the previous set. Later
// duplicates of an id are ignored.
func (s *SQLiteStore) ReplaceCollection(ctx context.Context, collection string, items []Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO items (collection, id, position, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, collection, it.ID, i, string(it.Data)); err != nil {
			return fmt.Errorf("insert %s/%s: %w", collection, it.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Collections(ctx context.Context) ([]CollectionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(m.key, length('last_synced:') + 1) AS name, m.value,
		       (SELECT COUNT(*) FROM items i WHERE i.collection = substr(m.key, length('last_synced:') + 1))
		FROM meta m
		WHERE m.key LIKE 'last_synced:%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CollectionSummary
	for rows.Next() {
		var c CollectionSummary
		var stamp string
		if err := rows.Scan(&c.Name, &stamp, &c.Items); err != nil {
			return nil, err
		}
		c.LastSynced = parseMillis(stamp)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) PutSchema(ctx context.Context, collection string, schema []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO schemas (collection, schema) VALUES (?, ?) ON CONFLICT(collection) DO UPDATE SET schema = excluded.schema",
		collection, string(schema),
	)
	return err
}

func (s *SQLiteStore) Schema(ctx context.Context, collection string) ([]byte, error) {
	var schema string
	err := s.db.QueryRowContext(ctx, "SELECT schema FROM schemas WHERE collection = ?", collection).Scan(&schema)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schema %s: %w", collection, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(schema), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
