// Package db stores stop words, user dictionary entries and monthly keyword
// results in SQLite or Postgres.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the persistence layer. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	driver string
	sb     squirrel.StatementBuilderType
}

// Open connects to dsn with driver (DriverSQLite or DriverPostgres).
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite serializes writers; one connection also keeps :memory: databases shared.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(conn, driver), nil
}

// New wraps an existing connection.
func New(conn *sql.DB, driver string) *Store {
	var ph squirrel.PlaceholderFormat = squirrel.Question
	if driver == DriverPostgres {
		ph = squirrel.Dollar
	}
	return &Store{
		db:     conn,
		driver: driver,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(ph),
	}
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Migrate applies every pending migration for the store's dialect and
// returns the number applied.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	dialect, dir := goose.DialectSQLite3, "migrations/sqlite"
	if s.driver == DriverPostgres {
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	}
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return 0, err
	}
	provider, err := goose.NewProvider(dialect, s.db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose new provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}
