// Package turn implements the Planning → Execution → Resolution cycle that gates stepping.
package turn

import (
	"log/slog"
	"time"
)

// Phase is one step of the turn cycle.
type Phase int

const (
	Planning Phase = iota
	Execution
	Resolution
)

func (p Phase) String() string {
	switch p {
	case Planning:
		return "planning"
	case Execution:
		return "execution"
	case Resolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// Config holds phase timings.
type Config struct {
	ExecutionDuration time.Duration
	ResolutionDelay   time.Duration
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{ExecutionDuration: 5 * time.Second, ResolutionDelay: time.Second}
}

// Observer is notified once per transition.
type Observer func(from, to Phase)

// Option configures a Manager.
type Option func(*Manager)

// WithScheduler replaces the frame scheduler used for the Resolution → Planning flip.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
		m.frame = nil
	}
}

// WithLogger sets the logger for transitions.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager holds the current phase. It is not safe for concurrent use.
type Manager struct {
	cfg       Config
	phase     Phase
	turn      uint
	elapsed   time.Duration
	scheduler Scheduler
	frame     *FrameScheduler
	observers []Observer
	logger    *slog.Logger
}

// New creates a manager in Planning on turn 1.
func New(cfg Config, opts ...Option) *Manager {
	frame := NewFrameScheduler()
	m := &Manager{
		cfg:       cfg,
		phase:     Planning,
		turn:      1,
		scheduler: frame,
		frame:     frame,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Phase returns the current phase.
func (m *Manager) Phase() Phase { return m.phase }

// Turn returns the current turn number, starting at 1.
func (m *Manager) Turn() uint { return m.turn }

// Elapsed returns the time spent in the current Execution phase.
func (m *Manager) Elapsed() time.Duration { return m.elapsed }

// OnTransition registers an observer.
func (m *Manager) OnTransition(o Observer) {
	m.observers = append(m.observers, o)
}

// CommitTurn moves Planning to Execution. It does nothing in other phases.
func (m *Manager) CommitTurn() bool {
	if m.phase != Planning {
		return false
	}
	m.elapsed = 0
	m.transition(Execution)
	return true
}

// Update advances phase time and reports whether the world should step this frame.
func (m *Manager) Update(dt time.Duration) bool {
	if m.frame != nil {
		m.frame.Advance(dt)
	}
	if m.phase != Execution {
		return false
	}
	m.elapsed += dt
	if m.elapsed < m.cfg.ExecutionDuration {
		return true
	}
	m.transition(Resolution)
	m.scheduler.Schedule(m.cfg.ResolutionDelay, m.endResolution)
	return false
}

// Flush runs the pending Resolution → Planning flip now. It only applies to the built-in
// frame scheduler.
func (m *Manager) Flush() {
	if m.frame != nil {
		m.frame.Flush()
	}
}

func (m *Manager) endResolution() {
	if m.phase != Resolution {
		return
	}
	m.turn++
	m.transition(Planning)
}

func (m *Manager) transition(to Phase) {
	from := m.phase
	m.phase = to
	m.logger.Debug("Turn phase changed", "turn", m.turn, "from", from.String(), "to", to.String())
	for _, o := range m.observers {
		o(from, to)
	}
}
