// Package sqlite provides the SQLite backend of the storage layer.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no network,
// no separate server process, and no installation beyond the driver.
//
// Importing go-sqlite3 registers the "sqlite3" driver with database/sql.
// The goqu dialect import teaches the query builder SQLite's quoting and
// placeholder rules.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/biblioteca/internal/config"
	"github.com/aanand-mishra/biblioteca/internal/storage/sqldb"
)

// schema mirrors the three tables of the library. available is 1 while
// the book can be lent and 0 while a loan is outstanding; return_date is
// NULL until the loan is closed.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		title     TEXT    NOT NULL,
		author    TEXT    NOT NULL,
		year      INTEGER,
		genre     TEXT    NOT NULL,
		available BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT    NOT NULL UNIQUE,
		surname       TEXT    NOT NULL,
		password_hash TEXT    NOT NULL,
		email         TEXT    UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id     INTEGER NOT NULL REFERENCES books(id),
		user_id     INTEGER NOT NULL REFERENCES users(id),
		loan_date   TEXT    NOT NULL,
		return_date TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_outstanding ON loans (book_id) WHERE return_date IS NULL`,
}

// Dialect describes SQLite to the shared store.
var Dialect = sqldb.Dialect{
	Name:              "sqlite3",
	Schema:            schema,
	IsUniqueViolation: isUniqueViolation,
}

// New opens the SQLite database at cfg.Storage.Path.
func New(ctx context.Context, cfg *config.Config) (*sqldb.Store, error) {
	return Open(ctx, cfg.Storage.Path)
}

// Open opens (or creates) the database file at path, creating its parent
// directory on first run, and applies the schema.
//
// DSN options:
//   - _foreign_keys=1      loans must reference existing books and users
//   - _busy_timeout=5000   wait up to 5s for a competing writer
//   - _txlock=immediate    a transaction takes the write lock at BEGIN, so
//     loan check-then-act sequences are serialised
//   - _journal_mode=WAL    readers do not block the writer
func Open(ctx context.Context, path string) (*sqldb.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.Open: create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: open db: %w", err)
	}

	store, err := sqldb.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}

	return store, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
