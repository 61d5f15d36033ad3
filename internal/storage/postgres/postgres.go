// Package postgres records matches into a PostGIS-enabled Postgres database.
package postgres

import (
	"fmt"
	"time"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/database"
	"github.com/OCAP2/artillery/internal/storage"
	gormstorage "github.com/OCAP2/artillery/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// ConnectFunc opens the database.
type ConnectFunc func(cfg config.PostgresConfig, log zerolog.Logger) (*gorm.DB, error)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config        config.PostgresConfig
	Logger        zerolog.Logger
	FlushInterval time.Duration
	// Connect defaults to database.GetPostgresDB.
	Connect ConnectFunc
}

// Backend connects on Init and delegates recording to the GORM backend.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Loader  = (*Backend)(nil)
)

// New creates a new Postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	if deps.Connect == nil {
		deps.Connect = database.GetPostgresDB
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Logger: deps.Logger}),
		deps:    deps,
	}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	db, err := b.deps.Connect(b.deps.Config, b.deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to %s:%s: %w", b.deps.Config.Host, b.deps.Config.Port, err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        b.deps.Logger,
		FlushInterval: b.deps.FlushInterval,
	})
	return b.Backend.Init()
}
