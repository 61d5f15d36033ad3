package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/OCAP2/artillery/internal/dispatcher"
	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/internal/monitor"
	"github.com/OCAP2/artillery/internal/util"
	"github.com/OCAP2/artillery/pkg/core"
)

// DefaultKind is the projectile kind used when :ARM: omits one.
const DefaultKind = "standard"

// PreviewEvery is the step stride of the path returned by :PREVIEW:.
const PreviewEvery = 5

// ErrArgs is returned when a command has the wrong number or shape of arguments.
var ErrArgs = errors.New("bad arguments")

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Match   *match.Match
	Monitor *monitor.Service
	Logger  *slog.Logger
}

// Service turns player commands into match operations. Every handler runs on the frame loop
// through the dispatcher's deferred queue.
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Register wires every command onto d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(":COMMIT:", s.Commit, dispatcher.Deferred(), dispatcher.Logged())
	d.Register(":ARM:", s.Arm, dispatcher.Deferred(), dispatcher.Logged())
	d.Register(":DISARM:", s.Disarm, dispatcher.Deferred(), dispatcher.Logged())
	d.Register(":PREVIEW:", s.Preview, dispatcher.Deferred())
	d.Register(":STATUS:", s.Status, dispatcher.Deferred())
}

// Commit ends the planning phase.
func (s *Service) Commit(e dispatcher.Event) (any, error) {
	if len(e.Args) != 0 {
		return nil, fmt.Errorf("commit takes no arguments: %w", ErrArgs)
	}
	if err := s.deps.Match.CommitTurn(); err != nil {
		return nil, err
	}
	return "ok", nil
}

// Arm queues a shot: `:ARM: <mountId> <vx> <vy> [kind]`.
func (s *Service) Arm(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 || len(e.Args) > 4 {
		return nil, fmt.Errorf("arm expects mountId vx vy [kind], got %d args: %w", len(e.Args), ErrArgs)
	}
	id, err := mountID(e.Args[0])
	if err != nil {
		return nil, err
	}
	v, err := util.ParseFloats(e.Args[1:3])
	if err != nil {
		return nil, fmt.Errorf("velocity: %w: %w", ErrArgs, err)
	}
	kind := DefaultKind
	if len(e.Args) == 4 {
		kind = util.TrimQuotes(e.Args[3])
	}

	if err := s.deps.Match.Arm(id, core.Vec2{X: v[0], Y: v[1]}, kind); err != nil {
		return nil, err
	}
	ap, err := s.deps.Match.ActionPoints(id)
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Debug("Mount armed", "mount", id, "kind", kind, "ap", ap)
	return ap, nil
}

// Disarm clears a queued shot: `:DISARM: <mountId>`.
func (s *Service) Disarm(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("disarm expects mountId: %w", ErrArgs)
	}
	id, err := mountID(e.Args[0])
	if err != nil {
		return nil, err
	}
	if err := s.deps.Match.Disarm(id); err != nil {
		return nil, err
	}
	return "ok", nil
}

// Trail is the predicted path of a previewed shot.
type Trail struct {
	Path []core.Vec2
	// Obstacle is the terrain body the shot would strike, 0 if none.
	Obstacle    int
	OutOfBounds bool
}

func (t Trail) String() string {
	end := "expires"
	switch {
	case t.Obstacle != 0:
		end = fmt.Sprintf("hits body %d", t.Obstacle)
	case t.OutOfBounds:
		end = "leaves the world"
	}
	s := fmt.Sprintf("trail %d points, %s", len(t.Path), end)
	for _, p := range t.Path {
		s += fmt.Sprintf(" %.1f,%.1f", p.X, p.Y)
	}
	return s
}

// Preview predicts where a shot would go: `:PREVIEW: <mountId> <vx> <vy>`.
func (s *Service) Preview(e dispatcher.Event) (any, error) {
	if len(e.Args) != 3 {
		return nil, fmt.Errorf("preview expects mountId vx vy, got %d args: %w", len(e.Args), ErrArgs)
	}
	id, err := mountID(e.Args[0])
	if err != nil {
		return nil, err
	}
	v, err := util.ParseFloats(e.Args[1:3])
	if err != nil {
		return nil, fmt.Errorf("velocity: %w: %w", ErrArgs, err)
	}
	path, res, err := s.deps.Match.Preview(id, core.Vec2{X: v[0], Y: v[1]}, PreviewEvery)
	if err != nil {
		return nil, err
	}
	return Trail{Path: path, Obstacle: res.Obstacle, OutOfBounds: res.OutOfBounds}, nil
}

// Status returns the current match report.
func (s *Service) Status(dispatcher.Event) (any, error) {
	if s.deps.Monitor != nil {
		return s.deps.Monitor.Refresh(), nil
	}
	return monitor.Build(s.deps.Match, 0), nil
}

func mountID(arg string) (int, error) {
	id, err := strconv.Atoi(util.TrimQuotes(arg))
	if err != nil {
		return 0, fmt.Errorf("mount id %q: %w", arg, ErrArgs)
	}
	return id, nil
}
