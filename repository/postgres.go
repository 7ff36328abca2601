package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/migrations"
	"github.com/ammiranda/category_service/nestedset"

	"github.com/lib/pq"
)

// treeLockKey is the advisory lock every structural mutation takes.
const treeLockKey int64 = 0x6361745f74726565

// PostgreSQL error codes treated as lost races
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// PostgresStore implements Store using PostgreSQL.
//
// Each write transaction takes a transaction-scoped advisory lock before its
// first boundary read, which serializes structural mutations across every
// process sharing the database. Reads run in repeatable-read, read-only
// transactions and never wait for the lock.
type PostgresStore struct {
	db     *sql.DB
	config *config.DatabaseConfig
	d      dialect
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(cfg *config.DatabaseConfig) *PostgresStore {
	return &PostgresStore{
		config: cfg,
		d:      dialect{numbered: true, conflict: postgresConflict},
	}
}

func postgresConflict(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return true
		}
	}
	return false
}

// Initialize sets up the PostgreSQL database
func (s *PostgresStore) Initialize(ctx context.Context) error {
	migrateDB, err := s.open(ctx)
	if err != nil {
		return err
	}
	if err := migrations.Up(migrateDB, migrations.Postgres); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}

	db, err := s.open(ctx)
	if err != nil {
		return err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	s.db = db
	return nil
}

func (s *PostgresStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", s.config.ConnString())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return db, nil
}

// Rollback reverts the most recent schema migration.
func (s *PostgresStore) Rollback(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	return migrations.Rollback(db, migrations.Postgres)
}

// SchemaVersion reports the applied schema version.
func (s *PostgresStore) SchemaVersion(ctx context.Context) (uint, bool, error) {
	db, err := s.open(ctx)
	if err != nil {
		return 0, false, err
	}
	return migrations.Version(db, migrations.Postgres)
}

// Cleanup closes the database connection
func (s *PostgresStore) Cleanup(ctx context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// View runs fn against a single snapshot.
func (s *PostgresStore) View(ctx context.Context, fn func(nestedset.Reader) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return runTx(ctx, s.db, s.d, opts, nil, func(tx *sqlTx) error {
		return fn(tx)
	})
}

// WithTx runs fn under the tree lock.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(nestedset.Tx) error) error {
	lock := func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, treeLockKey)
		return err
	}
	return runTx(ctx, s.db, s.d, nil, lock, func(tx *sqlTx) error {
		return fn(tx)
	})
}
