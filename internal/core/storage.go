package core

import (
	"fmt"
	"learnloop/internal/infra/persistence/memory"
	"learnloop/internal/infra/persistence/postgres"
	"learnloop/internal/infra/persistence/sqlite"
	"os"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and configures a backend.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// StorageOptionsFromEnv reads backend selection from the environment.
//
//	LEARNLOOP_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	LEARNLOOP_SQLITE_PATH: path to sqlite file (default ./learnloop.db)
//	LEARNLOOP_POSTGRES_DSN: postgres DSN when driver=postgres
func StorageOptionsFromEnv() StorageOptions {
	return StorageOptions{
		Driver:      StorageDriver(os.Getenv("LEARNLOOP_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("LEARNLOOP_SQLITE_PATH"),
		PostgresDSN: os.Getenv("LEARNLOOP_POSTGRES_DSN"),
	}
}

// OpenPersistentStore opens the backend named by opts. An empty driver means sqlite.
func OpenPersistentStore(opts StorageOptions, engine *RulesEngine) (PersistentStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(opts.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		store, err := postgres.NewStore(opts.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
