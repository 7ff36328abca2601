package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ammiranda/category_service/migrations"
	"github.com/ammiranda/category_service/nestedset"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
//
// Writes go through a handle whose transactions start with BEGIN IMMEDIATE,
// so a structural mutation holds the database write lock from its first
// boundary read to its commit. Reads use a second handle with deferred
// transactions; in WAL mode they see the last committed state and do not
// block the writer.
type SQLiteStore struct {
	db     *sql.DB
	readDB *sql.DB
	dbPath string
	d      dialect
}

// NewSQLiteStore creates a SQLite store at dbPath. An empty path selects
// ~/.categories/categories.db.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	if dbPath == "" {
		dbPath = defaultSQLitePath()
	}
	return &SQLiteStore{
		dbPath: dbPath,
		d:      dialect{conflict: sqliteConflict},
	}
}

func defaultSQLitePath() string {
	// Default to data directory in user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	dataDir := filepath.Join(homeDir, ".categories")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		// Fallback to current directory if home directory is not accessible
		dataDir = "."
	}
	return filepath.Join(dataDir, "categories.db")
}

func sqliteConflict(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// Initialize migrates the schema and opens the database
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	migrateDB, err := openSQLite(ctx, s.dbPath, "immediate")
	if err != nil {
		return err
	}
	if err := migrations.Up(migrateDB, migrations.SQLite); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}

	db, err := openSQLite(ctx, s.dbPath, "immediate")
	if err != nil {
		return err
	}
	readDB, err := openSQLite(ctx, s.dbPath, "deferred")
	if err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.readDB = readDB
	return nil
}

// Rollback reverts the most recent schema migration.
func (s *SQLiteStore) Rollback(ctx context.Context) error {
	db, err := openSQLite(ctx, s.dbPath, "immediate")
	if err != nil {
		return err
	}
	return migrations.Rollback(db, migrations.SQLite)
}

// SchemaVersion reports the applied schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (uint, bool, error) {
	db, err := openSQLite(ctx, s.dbPath, "immediate")
	if err != nil {
		return 0, false, err
	}
	return migrations.Version(db, migrations.SQLite)
}

func openSQLite(ctx context.Context, path, txlock string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=%s&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path, txlock)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return db, nil
}

// Cleanup closes the database connections
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// View runs fn in a deferred read transaction.
func (s *SQLiteStore) View(ctx context.Context, fn func(nestedset.Reader) error) error {
	return runTx(ctx, s.readDB, s.d, nil, nil, func(tx *sqlTx) error {
		return fn(tx)
	})
}

// WithTx runs fn in a write transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(nestedset.Tx) error) error {
	return runTx(ctx, s.db, s.d, nil, nil, func(tx *sqlTx) error {
		return fn(tx)
	})
}
