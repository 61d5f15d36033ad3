// Package influx writes match telemetry points to InfluxDB, or to an lz4-compressed
// line-protocol backup file when the server cannot be reached.
package influx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/OCAP2/artillery/internal/config"
	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Measurement names.
const (
	MeasurementTurn   = "turn"
	MeasurementShot   = "shot"
	MeasurementImpact = "impact"
	MeasurementMount  = "mount_event"
)

// Manager handles the InfluxDB connection and writes. It records matches like any other
// storage.Backend so it can sit behind storage.Multi next to the primary backend.
type Manager struct {
	cfg    config.InfluxConfig
	Logger zerolog.Logger

	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *lz4.Writer
	backupFile   *os.File
	IsValid      bool

	mu    sync.Mutex
	match core.MatchInfo
}

var _ storage.Backend = (*Manager)(nil)

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, Logger: log}
}

// Connect establishes a connection to InfluxDB. When the server does not answer the ping
// the manager falls back to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL,
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB client failed to initialize, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.IsValid = true
	m.Logger.Info().Str("url", m.cfg.URL).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return fmt.Errorf("influx unreachable and no backup path configured")
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = lz4.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// 90 day retention
	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Init connects. A disabled manager is not an error.
func (m *Manager) Init() error {
	if err := m.Connect(context.Background()); err != nil && !errors.Is(err, ErrDisabled) {
		return err
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	var err error
	if m.BackupWriter != nil {
		err = errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
		m.BackupWriter = nil
	}
	return err
}

// StartMatch remembers the match for tagging. It does not assign IDs.
func (m *Manager) StartMatch(info *core.MatchInfo) error {
	m.mu.Lock()
	m.match = *info
	m.mu.Unlock()
	return nil
}

// EndMatch flushes the writer.
func (m *Manager) EndMatch() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	return nil
}

func (m *Manager) active() bool {
	return m.IsValid || m.BackupWriter != nil
}

func (m *Manager) matchTag() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strconv.FormatUint(uint64(m.match.ID), 10)
}

func (m *Manager) RecordTurn(e *core.TurnEvent) error {
	if !m.active() {
		return nil
	}
	return m.WritePoint(TurnPoint(m.matchTag(), e))
}

func (m *Manager) RecordShot(e *core.ShotEvent) error {
	if !m.active() {
		return nil
	}
	return m.WritePoint(ShotPoint(m.matchTag(), e))
}

func (m *Manager) RecordImpact(e *core.ImpactEvent) error {
	if !m.active() {
		return nil
	}
	return m.WritePoint(ImpactPoint(m.matchTag(), e))
}

func (m *Manager) RecordMountEvent(e *core.MountEvent) error {
	if !m.active() {
		return nil
	}
	return m.WritePoint(MountPoint(m.matchTag(), e))
}

// TurnPoint has one alive_<team> field per team still standing.
func TurnPoint(matchID string, e *core.TurnEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementTurn).
		AddTag("match", matchID).
		AddTag("from", e.From).
		AddTag("to", e.To).
		AddField("turn", int64(e.Turn)).
		AddField("mounts", e.Mounts).
		SetTime(e.Time)
	for team, n := range e.Alive {
		p.AddField("alive_"+strconv.Itoa(int(team)), n)
	}
	return p
}

// ShotPoint records speed and launch angle. AI shots are the firing-solution search results.
func ShotPoint(matchID string, e *core.ShotEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementShot).
		AddTag("match", matchID).
		AddTag("team", strconv.Itoa(int(e.Team))).
		AddTag("kind", e.Kind).
		AddTag("ai", strconv.FormatBool(e.AI)).
		AddField("turn", int64(e.Turn)).
		AddField("mount", e.MountID).
		AddField("speed", e.Velocity.Len()).
		AddField("angle", e.Velocity.Angle()).
		SetTime(e.Time)
}

func ImpactPoint(matchID string, e *core.ImpactEvent) *influxdb2_write.Point {
	regions, area := terrainStats(e.Terrain)
	return influxdb2_write.NewPointWithMeasurement(MeasurementImpact).
		AddTag("match", matchID).
		AddTag("team", strconv.Itoa(int(e.Team))).
		AddTag("kind", e.Kind).
		AddField("turn", int64(e.Turn)).
		AddField("body", e.BodyID).
		AddField("mount", e.MountID).
		AddField("radius", e.Radius).
		AddField("regions", regions).
		AddField("terrain_area", area).
		SetTime(e.Time)
}

// terrainStats summarizes an impact's WKB region set. Missing or undecodable data counts as
// no terrain.
func terrainStats(wkb []byte) (regions int, area float64) {
	if len(wkb) == 0 {
		return 0, 0
	}
	rs, err := geo.RegionSetFromWKB(wkb)
	if err != nil {
		return 0, 0
	}
	return rs.Len(), rs.Area()
}

func MountPoint(matchID string, e *core.MountEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementMount).
		AddTag("match", matchID).
		AddTag("team", strconv.Itoa(int(e.Team))).
		AddTag("type", string(e.Type)).
		AddField("turn", int64(e.Turn)).
		AddField("mount", e.MountID).
		AddField("body", e.BodyID).
		AddField("health", e.Health).
		SetTime(e.Time)
}
