// Package postgres implements the repository interfaces on PostgreSQL via pgx.
//
// The schema is the same as the sqlite backend, managed by golang-migrate
// through its pgx/v5 driver. Queries use $N placeholders and pgx's native
// pool rather than database/sql.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the "pgx5://" scheme with golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/blogsite/internal/repository"
	"github.com/sakif/blogsite/internal/repository/migrations"
)

var _ repository.Store = (*DB)(nil)

// Postgres SQLSTATE codes we translate into apperror kinds.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
	url  string
}

// Options tunes the pool. Zero values keep pgxpool's defaults.
type Options struct {
	MaxConns int32
}

// New connects to databaseURL, verifies the connection and applies migrations.
func New(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	// Cache prepared statements per connection; every query here is static.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	cfg.ConnConfig.StatementCacheCapacity = 256

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	db := &DB{pool: pool, url: databaseURL}
	if err := db.migrate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

// Close releases every pooled connection. It always returns nil; the error
// exists to satisfy repository.Store.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// migrator opens golang-migrate's own connection. Unlike the sqlite backend
// it does not share our pool, so callers Close it when done.
func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := migrations.Source(migrations.DialectPostgres)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(db.url))
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
	defer m.Close()
	return migrations.Up(m)
}

// MigrationStatus reports the schema version recorded by golang-migrate.
func (db *DB) MigrationStatus() (migrations.Status, error) {
	m, err := db.migrator()
	if err != nil {
		return migrations.Status{}, err
	}
	defer m.Close()
	return migrations.CurrentStatus(m)
}

// migrateURL rewrites a postgres:// URL to the pgx5:// scheme golang-migrate
// registers for its pgx driver. Key/value DSNs are passed through unchanged.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isUniqueViolation(err error) bool     { return hasCode(err, codeUniqueViolation) }
func isForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }
