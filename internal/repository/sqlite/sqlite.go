// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. It is the default
// backend for single-server deployments, development, and tests (":memory:").
//
// modernc.org/sqlite is a pure Go translation of the SQLite C code, so it
// builds without CGo.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql", a generic interface for SQL databases.
// Key types:
//   - sql.DB      : a connection pool (NOT a single connection!)
//   - sql.Tx      : a transaction
//   - sql.Row     : a single result row
//   - sql.Rows    : multiple result rows (must be closed!)
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"

	// The blank-imported driver registers itself with database/sql as "sqlite".
	// The named import gives us the *Error type for constraint checks.
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/blogsite/internal/repository"
	"github.com/sakif/blogsite/internal/repository/migrations"
)

// compile-time check that *DB implements the full Store
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/blog.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests; lost on close)
//
// PRAGMAS IN THE DSN:
// PRAGMA statements are per-connection in SQLite. Running `PRAGMA foreign_keys=ON`
// once after sql.Open only affects whichever pooled connection happened to run it.
// modernc.org/sqlite applies `_pragma=` query parameters to EVERY connection it
// opens, so foreign keys (needed for ON DELETE CASCADE) are always enforced.
func New(dbPath string) (*DB, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("sqlite: database path is required")
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new, empty database.
	// Pinning the pool to one connection keeps the schema and data visible
	// to all queries.
	if isMemory(dbPath) {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func dsn(path string) string {
	params := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !isMemory(path) {
		// WAL allows concurrent reads while a write is in progress.
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health check endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrator builds a golang-migrate instance on top of our existing pool.
//
// WithInstance (rather than a "sqlite://path" URL) matters for ":memory:":
// a URL would make golang-migrate open its own, separate, empty database.
// The returned Migrate is never Closed, because closing it closes db.conn.
func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := migrations.Source(migrations.DialectSQLite)
	if err != nil {
		return nil, err
	}
	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, migrations.DialectSQLite, driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

func (db *DB) migrate() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	return migrations.Up(m)
}

// MigrationStatus reports the schema version recorded by golang-migrate.
func (db *DB) MigrationStatus() (migrations.Status, error) {
	m, err := db.migrator()
	if err != nil {
		return migrations.Status{}, err
	}
	return migrations.CurrentStatus(m)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves QueryRowContext and QueryContext results.
type rowScanner interface {
	Scan(dest ...any) error
}

func isConstraint(err error, code int) bool {
	var se *sqlitedrv.Error
	return errors.As(err, &se) && se.Code() == code
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}
