// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. The schema lives in migrations/*.sql, embedded into the
// binary and applied with golang-migrate.
//
// A *DB is either bound to the connection pool or, inside WithTx, to a
// single *sql.Tx. Every repository method goes through db.conn so the same
// code serves both cases.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/repository"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// compile-time check that *DB implements the full store
var _ repository.Store = (*DB)(nil)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	pool *sql.DB
	conn dbtx
	inTx bool
}

// New opens the database at dbPath and applies all pending migrations.
//
// dbPath examples:
//   - "data/catalog.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open opens the database without touching the schema.
func Open(dbPath string) (*DB, error) {
	pool, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool
	// is pinned to one connection.
	if dbPath == ":memory:" {
		pool.SetMaxOpenConns(1)
	}

	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return wrap(pool), nil
}

func wrap(pool *sql.DB) *DB {
	return &DB{pool: pool, conn: pool}
}

// dsn turns a path into a modernc DSN. Pragmas go in the DSN so they apply
// to every pooled connection, not only the first one.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.PingContext(ctx)
}

// Migrate applies every pending up migration and returns the resulting
// schema version.
//
// m is never closed: the sqlite driver's Close closes db.pool.
func (db *DB) Migrate() (uint, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("sqlite: loading migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.pool, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("sqlite: creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("sqlite: creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("sqlite: schema version %d is dirty", version)
	}
	return version, nil
}

// WithTx runs fn inside a transaction. Nested calls reuse the outer
// transaction.
func (db *DB) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if db.inTx {
		return fn(db)
	}

	tx, err := db.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(&DB{pool: db.pool, conn: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return false
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireAffected turns an UPDATE/DELETE that touched no rows into NotFound.
func requireAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
