// Package gormstorage implements storage.Backend on any GORM database with internal queues and
// a background writer goroutine. The sqlite and postgres backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/artillery/internal/database"
	"github.com/OCAP2/artillery/internal/model"
	"github.com/OCAP2/artillery/internal/model/convert"
	"github.com/OCAP2/artillery/internal/queue"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// ErrNoDB is returned by Init when no database was injected.
var ErrNoDB = errors.New("no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
	Clock         func() time.Time
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Turns       *queue.Queue[model.Turn]
	Shots       *queue.Queue[model.Shot]
	Impacts     *queue.Queue[model.Impact]
	MountEvents *queue.Queue[model.MountEvent]
}

func newQueues() *queues {
	return &queues{
		Turns:       queue.New[model.Turn](),
		Shots:       queue.New[model.Shot](),
		Impacts:     queue.New[model.Impact](),
		MountEvents: queue.New[model.MountEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	matchID  atomic.Uint64
	stopChan chan struct{}
	done     chan struct{}
	flushMu  sync.Mutex
}

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Loader  = (*Backend)(nil)
)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying database.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if err := database.Migrate(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Flush()
}

// StartMatch inserts the match row synchronously so that info.ID is known immediately.
func (b *Backend) StartMatch(info *core.MatchInfo) error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	row := convert.CoreToMatch(*info)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}
	info.ID = row.ID
	b.matchID.Store(uint64(row.ID))
	b.deps.Logger.Info().Uint("matchId", row.ID).Str("name", info.Name).Msg("Match started")
	return nil
}

// EndMatch writes the queued events and stamps the end time.
func (b *Backend) EndMatch() error {
	id := uint(b.matchID.Load())
	if id == 0 {
		return storage.ErrNoMatch
	}
	if err := b.Flush(); err != nil {
		return err
	}
	end := b.deps.Clock()
	if err := b.deps.DB.Model(&model.Match{}).Where("id = ?", id).Update("end_time", end).Error; err != nil {
		return fmt.Errorf("failed to end match %d: %w", id, err)
	}
	b.matchID.Store(0)
	b.deps.Logger.Info().Uint("matchId", id).Msg("Match ended")
	return nil
}

// MatchID returns the match currently being recorded, 0 if none.
func (b *Backend) MatchID() uint {
	return uint(b.matchID.Load())
}

func (b *Backend) current() (uint, error) {
	id := uint(b.matchID.Load())
	if id == 0 {
		return 0, storage.ErrNoMatch
	}
	return id, nil
}

// RecordTurn converts and queues a turn event.
func (b *Backend) RecordTurn(e *core.TurnEvent) error {
	id, err := b.current()
	if err != nil {
		return err
	}
	row := convert.CoreToTurn(*e)
	row.MatchID = id
	b.queues.Turns.Push(row)
	return nil
}

// RecordShot converts and queues a shot.
func (b *Backend) RecordShot(e *core.ShotEvent) error {
	id, err := b.current()
	if err != nil {
		return err
	}
	row := convert.CoreToShot(*e)
	row.MatchID = id
	b.queues.Shots.Push(row)
	return nil
}

// RecordImpact converts and queues an impact.
func (b *Backend) RecordImpact(e *core.ImpactEvent) error {
	id, err := b.current()
	if err != nil {
		return err
	}
	row := convert.CoreToImpact(*e)
	row.MatchID = id
	b.queues.Impacts.Push(row)
	return nil
}

// RecordMountEvent converts and queues a mount lifecycle event.
func (b *Backend) RecordMountEvent(e *core.MountEvent) error {
	id, err := b.current()
	if err != nil {
		return err
	}
	row := convert.CoreToMountEvent(*e)
	row.MatchID = id
	b.queues.MountEvents.Push(row)
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.queues.Turns.Len() + b.queues.Shots.Len() + b.queues.Impacts.Len() + b.queues.MountEvents.Len()
}

// Flush writes every queue now. Failed batches are requeued and the errors joined.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	log := b.deps.Logger
	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Turns, "turns", log),
		writeQueue(b.deps.DB, b.queues.Shots, "shots", log),
		writeQueue(b.deps.DB, b.queues.Impacts, "impacts", log),
		writeQueue(b.deps.DB, b.queues.MountEvents, "mount events", log),
	)
}

// LoadMatch reads a match and its full event log.
func (b *Backend) LoadMatch(id uint) (*storage.Record, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDB
	}
	db := b.deps.DB

	var m model.Match
	if err := db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("match %d: %w", id, storage.ErrNotFound)
		}
		return nil, err
	}
	rec := &storage.Record{Info: convert.MatchToCore(m), EndTime: m.EndTime}

	var turns []model.Turn
	if err := db.Where("match_id = ?", id).Order("id").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	for _, t := range turns {
		rec.Turns = append(rec.Turns, convert.TurnToCore(t))
	}

	var shots []model.Shot
	if err := db.Where("match_id = ?", id).Order("id").Find(&shots).Error; err != nil {
		return nil, fmt.Errorf("load shots: %w", err)
	}
	for _, s := range shots {
		rec.Shots = append(rec.Shots, convert.ShotToCore(s))
	}

	var impacts []model.Impact
	if err := db.Where("match_id = ?", id).Order("id").Find(&impacts).Error; err != nil {
		return nil, fmt.Errorf("load impacts: %w", err)
	}
	for _, i := range impacts {
		rec.Impacts = append(rec.Impacts, convert.ImpactToCore(i))
	}

	var events []model.MountEvent
	if err := db.Where("match_id = ?", id).Order("id").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load mount events: %w", err)
	}
	for _, e := range events {
		rec.MountEvents = append(rec.MountEvents, convert.MountEventToCore(e))
	}
	return rec, nil
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("queue", name).Int("count", len(items)).Msg("Error writing queue")
		tx.Rollback()
		q.Requeue(items)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("commit %s: %w", name, err)
	}
	log.Debug().Str("queue", name).Int("count", len(items)).Msg("Wrote queue")
	return nil
}

// writeLoop periodically drains the queues into the DB until Close.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
