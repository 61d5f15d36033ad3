package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/artillery/internal/logging"
	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/internal/model"
	"github.com/OCAP2/artillery/internal/session"

	"gorm.io/gorm"
)

// DefaultInterval is how often the status file is rewritten.
const DefaultInterval = time.Second

// MountStatus describes one mount in a Status report.
type MountStatus struct {
	ID     int     `json:"id"`
	Team   int     `json:"team"`
	Body   int     `json:"body"`
	AP     int     `json:"ap"`
	Health float64 `json:"health"`
	Armed  string  `json:"armed,omitempty"`
	Fall   bool    `json:"falling,omitempty"`
}

// Status is a point-in-time report of a match.
type Status struct {
	Time        time.Time     `json:"time"`
	MatchID     uint          `json:"matchId"`
	Turn        uint          `json:"turn"`
	Phase       string        `json:"phase"`
	Over        bool          `json:"over"`
	Winner      int           `json:"winner,omitempty"`
	Bodies      int           `json:"bodies"`
	Mounts      []MountStatus `json:"mounts"`
	Projectiles int           `json:"projectiles"`
	Pending     int           `json:"pending"`
}

// Build reports the state of m. It reads match state and must run on the frame loop.
func Build(m *match.Match, pending int) Status {
	st := Status{
		Time:        time.Now(),
		MatchID:     m.Info().ID,
		Turn:        m.Turn(),
		Phase:       m.Phase().String(),
		Over:        m.Over(),
		Projectiles: len(m.Projectiles()),
		Pending:     pending,
		Mounts:      []MountStatus{},
	}
	if w, ok := m.Winner(); ok {
		st.Winner = int(w)
	}
	for _, b := range m.Bodies() {
		if !b.Destroyed() {
			st.Bodies++
		}
	}
	for _, mt := range m.Mounts() {
		ms := MountStatus{
			ID:     mt.ID,
			Team:   int(mt.Team),
			Body:   mt.BodyID,
			AP:     mt.AP,
			Health: mt.Health,
			Fall:   mt.Falling,
		}
		if a, ok := mt.Armed(); ok {
			ms.Armed = a.Kind
		}
		st.Mounts = append(st.Mounts, ms)
	}
	return st
}

// Lines renders the report for the status file.
func (s Status) Lines() []string {
	out := []string{
		fmt.Sprintf("MATCH: %d", s.MatchID),
		fmt.Sprintf("TURN: %d (%s)", s.Turn, s.Phase),
		fmt.Sprintf("BODIES: %d", s.Bodies),
		fmt.Sprintf("PROJECTILES: %d", s.Projectiles),
		fmt.Sprintf("PENDING COMMANDS: %d", s.Pending),
	}
	if s.Over {
		out = append(out, fmt.Sprintf("OVER: winner %d", s.Winner))
	}
	out = append(out, "MOUNTS:")
	for _, m := range s.Mounts {
		line := fmt.Sprintf("  %d team=%d body=%d ap=%d health=%.0f", m.ID, m.Team, m.Body, m.AP, m.Health)
		if m.Armed != "" {
			line += " armed=" + m.Armed
		}
		if m.Fall {
			line += " falling"
		}
		out = append(out, line)
	}
	return out
}

// Sample converts the report into a row for the database.
func (s Status) Sample() model.StatusSample {
	armed := 0
	for _, m := range s.Mounts {
		if m.Armed != "" {
			armed++
		}
	}
	return model.StatusSample{
		Time:        s.Time,
		MatchID:     s.MatchID,
		Turn:        s.Turn,
		Phase:       s.Phase,
		Bodies:      uint16(s.Bodies),
		Mounts:      uint16(len(s.Mounts)),
		Armed:       uint16(armed),
		Projectiles: uint16(s.Projectiles),
		Pending:     uint16(s.Pending),
	}
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Match      *match.Match
	Session    *session.Context
	LogManager *logging.SlogManager
	// Pending reports the dispatcher queue length.
	Pending func() int
	// StatusFile is rewritten with the latest report. Empty disables the file.
	StatusFile string
	// DB, when set, receives one StatusSample per interval.
	DB       *gorm.DB
	Interval time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	latest    Status
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Refresh rebuilds the report from the match. Call it from the frame loop.
func (s *Service) Refresh() Status {
	pending := 0
	if s.deps.Pending != nil {
		pending = s.deps.Pending()
	}
	st := Build(s.deps.Match, pending)
	s.mu.Lock()
	s.latest = st
	s.mu.Unlock()
	return st
}

// Latest returns the last report built by Refresh.
func (s *Service) Latest() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// JSON renders the latest report.
func (s *Service) JSON() ([]byte, error) {
	return json.Marshal(s.Latest())
}

// Start starts the status monitor goroutine. It only publishes what Refresh produced.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.publish()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Service) publish() {
	st := s.Latest()
	if st.Time.IsZero() {
		return
	}
	if s.deps.Session != nil && s.deps.Session.GetMatch().ID == 0 {
		return
	}
	logger := s.logger()

	if s.deps.StatusFile != "" {
		if err := s.writeStatusFile(st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	if s.deps.DB != nil {
		sample := st.Sample()
		if err := s.deps.DB.Create(&sample).Error; err != nil {
			logger.Error("Error writing status sample", "error", err)
		}
	}
}

func (s *Service) logger() *slog.Logger {
	if s.deps.LogManager != nil {
		return s.deps.LogManager.Logger()
	}
	return slog.Default()
}

// writeStatusFile writes the report as JSON when the path ends in .json and as plain lines
// otherwise.
func (s *Service) writeStatusFile(st Status) error {
	if filepath.Ext(s.deps.StatusFile) != ".json" {
		return writeLines(s.deps.StatusFile, st.Lines())
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(s.deps.StatusFile, data, 0644)
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}
