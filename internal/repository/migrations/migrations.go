// Package migrations embeds the SQL schema files for every store backend and
// applies them with golang-migrate.
//
// Files follow golang-migrate's naming: {version}_{title}.up.sql / .down.sql,
// one directory per dialect. The schema_migrations table that golang-migrate
// maintains records which version a database is at, so Up only runs files
// that have not been applied yet.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Source returns a golang-migrate source reading the embedded files for dialect.
func Source(dialect string) (source.Driver, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
	src, err := iofs.New(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("migrations: opening %s source: %w", dialect, err)
	}
	return src, nil
}

// Up applies all pending migrations. An already up-to-date database is not an error.
func Up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: applying: %w", err)
	}
	return nil
}

// Status describes the schema version of a database.
type Status struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// CurrentStatus reports the applied version. A fresh database reports version 0.
func CurrentStatus(m *migrate.Migrate) (Status, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("migrations: reading version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}
