package core

import (
	"eats/internal/infra/persistence/badger"
	"eats/internal/infra/persistence/memory"
	"eats/internal/infra/persistence/postgres"
	"eats/internal/infra/persistence/sqlite"
	"fmt"
	"io"
	"os"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded badger directory
)

// StorageConfig selects and locates a backend. Empty locations use each
// backend's default.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	BadgerDir   string
}

// StorageConfigFromEnv reads the storage selection from the environment.
//
//	EATS_STORAGE_DRIVER: memory|sqlite|postgres|badger (default sqlite)
//	EATS_SQLITE_PATH: path to sqlite file (default ./eats.db)
//	EATS_POSTGRES_DSN: postgres DSN when driver=postgres
//	EATS_BADGER_DIR: badger directory when driver=badger (default ./eats-badger)
func StorageConfigFromEnv() StorageConfig {
	return StorageConfig{
		Driver:      StorageDriver(os.Getenv("EATS_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("EATS_SQLITE_PATH"),
		PostgresDSN: os.Getenv("EATS_POSTGRES_DSN"),
		BadgerDir:   os.Getenv("EATS_BADGER_DIR"),
	}
}

const defaultBadgerDir = "eats-badger"

// OpenStore opens the configured backend. Durable backends also implement
// io.Closer.
func OpenStore(cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(cfg.PostgresDSN, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageBadger:
		dir := cfg.BadgerDir
		if dir == "" {
			dir = defaultBadgerDir
		}
		store, err := badger.NewStore(badger.Config{Dir: dir}, engine)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	return OpenStore(StorageConfigFromEnv(), engine)
}

// CloseStore closes durable stores and is a no-op for the memory store.
func CloseStore(store PersistentStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
