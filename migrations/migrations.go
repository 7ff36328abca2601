// Package migrations holds the category schema for every supported database
// and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect selects the migration set; it is also the directory name.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// New prepares a migrator for db. Closing the migrator closes db, so db
// should be a handle dedicated to migrating.
func New(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	var (
		driver     database.Driver
		driverName string
		err        error
	)
	switch dialect {
	case Postgres:
		driverName = "postgres"
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case SQLite:
		driverName = "sqlite3"
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating migration driver: %w", err)
	}

	source, err := iofs.New(files, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("error opening migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return nil, fmt.Errorf("error creating migration instance: %w", err)
	}
	return m, nil
}

// Up applies every pending migration and closes db.
func Up(db *sql.DB, dialect Dialect) error {
	m, err := New(db, dialect)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}

// Rollback reverts the most recently applied migration and closes db.
func Rollback(db *sql.DB, dialect Dialect) error {
	m, err := New(db, dialect)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()
	if _, _, err := m.Version(); err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("no migrations to rollback")
		}
		return fmt.Errorf("error reading migration version: %w", err)
	}
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("error rolling back migration: %w", err)
	}
	return nil
}

// Version reports the applied schema version and closes db.
func Version(db *sql.DB, dialect Dialect) (uint, bool, error) {
	m, err := New(db, dialect)
	if err != nil {
		db.Close()
		return 0, false, err
	}
	defer m.Close()
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
