// Package sqlitestorage records matches into an in-memory SQLite database and
// dumps it to disk via VACUUM INTO on a timer, at the end of every match and on Close.
package sqlitestorage

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

// Backend wraps the GORM backend with the in-memory DB and its disk dumps.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Loader   = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	db, err := database.GetSqliteDB("", log)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		db:      db,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// EndMatch closes the match and dumps the finished recording.
func (b *Backend) EndMatch() error {
	if err := b.Backend.EndMatch(); err != nil {
		return err
	}
	return b.dump()
}

// Close stops the dump goroutine, flushes the GORM backend and dumps one last time.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.dump()
}

// ExportedFilePath returns the dump file.
func (b *Backend) ExportedFilePath() string {
	return b.cfg.Path
}

func (b *Backend) dump() error {
	if b.cfg.Path == "" {
		return nil
	}
	return database.TimedDump(b.db, b.cfg.Path, b.log)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO takes a point-in-time snapshot so recording continues meanwhile.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Backend.Flush()
			_ = b.dump()
		}
	}
}
