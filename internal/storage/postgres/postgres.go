// Package postgres provides the PostgreSQL backend of the storage layer.
//
// Either database/sql driver may carry the connection: pgx's stdlib
// adapter ("pgx", the default) or lib/pq ("postgres"). Both are
// registered here; config.Storage.PostgresDriver picks one.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aanand-mishra/biblioteca/internal/config"
	"github.com/aanand-mishra/biblioteca/internal/storage/sqldb"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id        BIGSERIAL PRIMARY KEY,
		title     TEXT    NOT NULL,
		author    TEXT    NOT NULL,
		year      INTEGER,
		genre     TEXT    NOT NULL,
		available BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		surname       TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		email         TEXT UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id          BIGSERIAL PRIMARY KEY,
		book_id     BIGINT NOT NULL REFERENCES books(id),
		user_id     BIGINT NOT NULL REFERENCES users(id),
		loan_date   TEXT   NOT NULL,
		return_date TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_outstanding ON loans (book_id) WHERE return_date IS NULL`,
}

// Dialect describes PostgreSQL to the shared store.
var Dialect = sqldb.Dialect{
	Name:              "postgres",
	Schema:            schema,
	IsUniqueViolation: isUniqueViolation,
}

// Pool settings for a small web app; the open-connection cap comes from
// config.
const (
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
	connMaxIdleTime = 5 * time.Minute
)

// New connects to cfg.Storage.DSN with the configured driver and applies
// the schema.
func New(ctx context.Context, cfg *config.Config) (*sqldb.Store, error) {
	driver := cfg.Storage.PostgresDriver
	if driver == "" {
		driver = config.PostgresDriverPgx
	}

	db, err := sqlx.Open(driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}

	db.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	store, err := sqldb.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: %w", err)
	}

	return store, nil
}

// isUniqueViolation recognises the error types of both drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}

	return false
}
