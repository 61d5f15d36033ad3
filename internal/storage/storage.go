// internal/storage/storage.go
package storage

import (
	"errors"
	"time"

	"github.com/OCAP2/artillery/pkg/core"
)

var (
	// ErrNoMatch is returned when recording before StartMatch or after EndMatch.
	ErrNoMatch = errors.New("no match in progress")
	// ErrNotFound is returned by loaders for an unknown match id.
	ErrNotFound = errors.New("match not found")
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management (StartMatch assigns info.ID)
	StartMatch(info *core.MatchInfo) error
	EndMatch() error

	// Event recording
	RecordTurn(e *core.TurnEvent) error
	RecordShot(e *core.ShotEvent) error
	RecordImpact(e *core.ImpactEvent) error
	RecordMountEvent(e *core.MountEvent) error
}

// Loader is implemented by backends that can read a recorded match back.
type Loader interface {
	LoadMatch(id uint) (*Record, error)
}

// Exporter is an optional interface for backends that write an export file on EndMatch.
type Exporter interface {
	ExportedFilePath() string
}

// Record is a recorded match with its full event log.
type Record struct {
	Info        core.MatchInfo
	EndTime     *time.Time
	Turns       []core.TurnEvent
	Shots       []core.ShotEvent
	Impacts     []core.ImpactEvent
	MountEvents []core.MountEvent
}

// Nop discards everything.
type Nop struct{}

var _ Backend = Nop{}

func (Nop) Init() error                             { return nil }
func (Nop) Close() error                            { return nil }
func (Nop) StartMatch(*core.MatchInfo) error        { return nil }
func (Nop) EndMatch() error                         { return nil }
func (Nop) RecordTurn(*core.TurnEvent) error        { return nil }
func (Nop) RecordShot(*core.ShotEvent) error        { return nil }
func (Nop) RecordImpact(*core.ImpactEvent) error    { return nil }
func (Nop) RecordMountEvent(*core.MountEvent) error { return nil }

// Multi fans every call out to several backends in order. The first backend assigns the
// match ID in StartMatch; later ones see it already set. Errors are joined.
type Multi []Backend

var _ Backend = Multi(nil)

func (m Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Init() error  { return m.each(func(b Backend) error { return b.Init() }) }
func (m Multi) Close() error { return m.each(func(b Backend) error { return b.Close() }) }
func (m Multi) EndMatch() error {
	return m.each(func(b Backend) error { return b.EndMatch() })
}

func (m Multi) StartMatch(info *core.MatchInfo) error {
	return m.each(func(b Backend) error { return b.StartMatch(info) })
}

func (m Multi) RecordTurn(e *core.TurnEvent) error {
	return m.each(func(b Backend) error { return b.RecordTurn(e) })
}

func (m Multi) RecordShot(e *core.ShotEvent) error {
	return m.each(func(b Backend) error { return b.RecordShot(e) })
}

func (m Multi) RecordImpact(e *core.ImpactEvent) error {
	return m.each(func(b Backend) error { return b.RecordImpact(e) })
}

func (m Multi) RecordMountEvent(e *core.MountEvent) error {
	return m.each(func(b Backend) error { return b.RecordMountEvent(e) })
}
