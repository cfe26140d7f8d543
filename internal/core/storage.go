package core

import (
	"fmt"

	"standcore/internal/config"
	"standcore/internal/infra/persistence/jsonfile"
	"standcore/internal/infra/persistence/memory"
	"standcore/internal/infra/persistence/postgres"
	"standcore/internal/infra/persistence/sqlite"
	"standcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageJSONFile StorageDriver = "jsonfile" // one JSON file per collection
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// DurableStore is a persistent store that can be bulk seeded from an
// adapted snapshot and wiped back to empty.
type DurableStore interface {
	domain.PersistentStore
	Seed(memory.Snapshot) error
	Reset() error
}

// OpenPersistentStore selects a backend from the configured storage driver.
func OpenPersistentStore(cfg config.Config, engine *domain.RulesEngine) (DurableStore, error) {
	switch StorageDriver(cfg.StorageDriver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageJSONFile:
		return jsonfile.NewStore(cfg.DataDir, engine)
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.StorageDriver)
	}
}
