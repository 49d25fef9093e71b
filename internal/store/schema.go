package store

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS items (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    position   INTEGER NOT NULL,
    data       TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_items_position ON items(collection, position);

CREATE TABLE IF NOT EXISTS schemas (
    collection TEXT PRIMARY KEY,
    schema     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
