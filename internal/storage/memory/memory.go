// Package memory keeps recordings in memory and exports each finished match to a JSON file.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/pkg/core"
)

// Backend stores match data in memory and exports to JSON
type Backend struct {
	cfg   config.MemoryConfig
	clock func() time.Time

	current        *storage.Record
	matches        map[uint]*storage.Record
	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Loader   = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		clock:   time.Now,
		matches: make(map[uint]*storage.Record),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports a match that was never ended.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	return b.finish()
}

// StartMatch begins recording a new match and assigns its ID
func (b *Backend) StartMatch(info *core.MatchInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	info.ID = b.idCounter
	b.current = &storage.Record{Info: *info}
	return nil
}

// EndMatch finalizes and exports the match data
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return storage.ErrNoMatch
	}
	return b.finish()
}

func (b *Backend) finish() error {
	end := b.clock()
	rec := b.current
	rec.EndTime = &end
	b.matches[rec.Info.ID] = rec
	b.current = nil

	if b.cfg.OutputDir == "" {
		return nil
	}
	path, err := exportJSON(b.cfg, rec)
	if err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}

// ExportedFilePath returns the file written by the last EndMatch.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// LoadMatch returns a finished match held in memory.
func (b *Backend) LoadMatch(id uint) (*storage.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %d: %w", id, storage.ErrNotFound)
	}
	return rec, nil
}

// RecordTurn appends a turn event
func (b *Backend) RecordTurn(e *core.TurnEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return storage.ErrNoMatch
	}
	b.current.Turns = append(b.current.Turns, *e)
	return nil
}

// RecordShot appends a shot
func (b *Backend) RecordShot(e *core.ShotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return storage.ErrNoMatch
	}
	b.current.Shots = append(b.current.Shots, *e)
	return nil
}

// RecordImpact appends an impact
func (b *Backend) RecordImpact(e *core.ImpactEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return storage.ErrNoMatch
	}
	b.current.Impacts = append(b.current.Impacts, *e)
	return nil
}

// RecordMountEvent appends a mount lifecycle event
func (b *Backend) RecordMountEvent(e *core.MountEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return storage.ErrNoMatch
	}
	b.current.MountEvents = append(b.current.MountEvents, *e)
	return nil
}
