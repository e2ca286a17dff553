// Package sqldb implements storage.Storage on top of a relational
// database reached through database/sql.
//
// Reads are built with goqu for the configured dialect and scanned with
// sqlx. Writes are plain SQL rebound to the driver's placeholder style.
// The loan lifecycle runs inside a single transaction per call, and the
// availability flip is a conditional update, so two concurrent loans for
// the same book cannot both succeed.
//
// Backends (sqlite, postgres) open the connection and supply a Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/aanand-mishra/biblioteca/internal/storage"
)

// Dialect carries what differs between backends.
type Dialect struct {
	// Name is the goqu dialect used to build read queries.
	Name string

	// Schema holds idempotent DDL statements applied by New.
	Schema []string

	// IsUniqueViolation reports whether err is a uniqueness-constraint
	// failure raised by the driver.
	IsUniqueViolation func(err error) bool
}

// Store is the concrete implementation of storage.Storage.
// The embedded *sqlx.DB is a connection pool safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	qb      goqu.DialectWrapper
}

var _ storage.Storage = (*Store)(nil)

// New verifies the connection, applies the dialect schema and returns a
// ready-to-use Store. The Store takes ownership of db.
func New(ctx context.Context, db *sqlx.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqldb.New: ping: %w", err)
	}

	s := &Store{
		db:      db,
		dialect: dialect,
		qb:      goqu.Dialect(dialect.Name),
	}

	if err := s.migrate(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// DB exposes the underlying pool for maintenance tasks and tests.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// migrate applies the schema in one transaction. Every statement is
// CREATE ... IF NOT EXISTS, so running it on every startup is safe.
func (s *Store) migrate(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range s.dialect.Schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqldb.migrate: %w", err)
			}
		}
		return nil
	})
}

// inTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. Errors returned by fn pass through untouched so
// callers can match storage sentinels with errors.Is.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// selectAll renders ds and scans every row into dest (pointer to slice).
func (s *Store) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

// selectOne renders ds and scans the single resulting row into dest.
// It returns sql.ErrNoRows when nothing matched.
func (s *Store) selectOne(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Limit(1).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.GetContext(ctx, dest, query, args...)
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}
