package repository

import (
	"context"
	"fmt"

	"github.com/ammiranda/category_service/config"
	"github.com/ammiranda/category_service/nestedset"
)

// Store is a nested-set row store with a lifecycle.
type Store interface {
	nestedset.Store

	// Initialize performs any necessary setup for the store.
	// This may include establishing database connections and running
	// migrations. Returns an error if initialization fails.
	Initialize(ctx context.Context) error

	// Cleanup releases the resources held by the store.
	Cleanup(ctx context.Context) error
}

// Migrator is implemented by stores with a versioned schema.
type Migrator interface {
	// Rollback reverts the most recent schema migration.
	Rollback(ctx context.Context) error
	// SchemaVersion reports the applied version and whether it is dirty.
	SchemaVersion(ctx context.Context) (uint, bool, error)
}

// Store drivers accepted by NewStore
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NewStore builds the store selected by cfg. The store still has to be
// initialized by the caller.
func NewStore(ctx context.Context, cfg *config.ServiceConfig, cfgProvider config.Provider) (Store, error) {
	switch cfg.StoreDriver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath), nil
	case DriverPostgres:
		dbCfg, err := config.GetDatabaseConfig(ctx, cfgProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to get database config: %w", err)
		}
		return NewPostgresStore(dbCfg), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
