package main

import (
	"fmt"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/database"
	"github.com/OCAP2/artillery/internal/storage"
	gormstorage "github.com/OCAP2/artillery/internal/storage/gorm"
	"github.com/OCAP2/artillery/internal/storage/memory"
	pgstorage "github.com/OCAP2/artillery/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/artillery/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// newBackend creates the recording backend named by storage.type.
func newBackend(cfg config.StorageConfig, log zerolog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		log.Info().Str("host", cfg.Postgres.Host).Msg("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Dependencies{Config: cfg.Postgres, Logger: log}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(cfg.SQLite, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info().Str("path", cfg.SQLite.Path).Msg("SQLite storage backend selected")
		return backend, nil

	case "memory", "":
		log.Info().Str("outputDir", cfg.Memory.OutputDir).Msg("Memory storage backend selected")
		return memory.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("%w: unknown storage type %q", errUsage, cfg.Type)
	}
}

// loadRecord reads a recorded match, from an export file when file is set, otherwise by id
// from the configured database.
func loadRecord(cfg config.StorageConfig, id uint, file string, log zerolog.Logger) (*storage.Record, error) {
	if file != "" {
		return memory.ReadExport(file)
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: --id or --file is required", errUsage)
	}

	var loader storage.Loader
	switch cfg.Type {
	case "postgres":
		db, err := database.GetPostgresDB(cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		loader = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log})
	case "sqlite":
		db, err := database.GetSqliteDB(cfg.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		loader = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log})
	default:
		return nil, fmt.Errorf("%w: storage type %q keeps no database, use --file", errUsage, cfg.Type)
	}
	return loader.LoadMatch(id)
}
