// Package search finds firing solutions by sampling shots through a ballistics batch.
package search

import (
	"context"
	"fmt"
	"math"

	"github.com/OCAP2/artillery/internal/ballistics"
	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds search and planner tunables. Angles are in radians.
type Config struct {
	Attempts          int
	DirectFraction    float64
	DirectAngleJitter float64
	DirectSpeedFactor float64
	DirectSpeedJitter float64
	SkyHalfAngle      float64
	MinSpeedFactor    float64
	MaxSpeed          float64

	TargetAttempts int
	PriorityJitter float64
	AimNoiseAngle  float64
	AimNoiseSpeed  float64
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		Attempts:          40,
		DirectFraction:    0.25,
		DirectAngleJitter: 0.25,
		DirectSpeedFactor: 0.9,
		DirectSpeedJitter: 0.2,
		SkyHalfAngle:      85 * math.Pi / 180,
		MinSpeedFactor:    0.2,
		MaxSpeed:          300,
		TargetAttempts:    10,
		PriorityJitter:    5,
		AimNoiseAngle:     0.03,
		AimNoiseSpeed:     0.05,
	}
}

// Evaluator runs one candidate shot. *ballistics.Batch implements it.
type Evaluator interface {
	Evaluate(ballistics.Shot) (ballistics.Result, error)
}

var _ Evaluator = (*ballistics.Batch)(nil)

// Request describes one solve: a muzzle, its up direction and a target disc.
type Request struct {
	Origin       core.Vec2
	UpAngle      float64
	Team         core.TeamID
	Target       core.Vec2
	TargetRadius float64
	TargetBody   int
}

func (r Request) shot(angle, speed float64) ballistics.Shot {
	return ballistics.Shot{
		Origin:       r.Origin,
		Velocity:     core.FromAngle(angle, speed),
		Team:         r.Team,
		Target:       r.Target,
		TargetRadius: r.TargetRadius,
		TargetBody:   r.TargetBody,
	}
}

// Searcher samples angle/speed pairs.
type Searcher struct {
	cfg Config
	rng *rng.Rand

	attempts  metric.Int64Counter
	solutions metric.Int64Counter
	vetoes    metric.Int64Counter
}

// NewSearcher creates a searcher drawing from r.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewSearcher(cfg Config, r *rng.Rand) (*Searcher, error) {
	s := &Searcher{cfg: cfg, rng: r}
	m := meter()

	var err error
	s.attempts, err = m.Int64Counter(
		"search.attempts",
		metric.WithDescription("Candidate shots evaluated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	s.solutions, err = m.Int64Counter(
		"search.solutions",
		metric.WithDescription("Solves that returned a solution"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating solutions counter: %w", err)
	}

	s.vetoes, err = m.Int64Counter(
		"search.vetoes",
		metric.WithDescription("Candidates discarded for friendly fire"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating vetoes counter: %w", err)
	}

	return s, nil
}

// Config returns the tunables.
func (s *Searcher) Config() Config { return s.cfg }

// Solve returns the first hitting candidate, else the non-friendly candidate that came closest,
// else nil. Only evaluation errors are returned as errors.
func (s *Searcher) Solve(eval Evaluator, req Request) (*core.FiringSolution, error) {
	cfg := s.cfg
	dist := req.Origin.Dist(req.Target)
	direct := req.Target.Sub(req.Origin).Angle()
	directN := int(math.Round(float64(cfg.Attempts) * cfg.DirectFraction))

	var best *core.FiringSolution
	tried := 0
	defer func() {
		s.attempts.Add(context.Background(), int64(tried))
		if best != nil {
			s.solutions.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("hit", best.Hit)))
		}
	}()

	for i := 0; i < cfg.Attempts; i++ {
		var angle, speed float64
		if i < directN {
			angle = direct + s.rng.Range(-cfg.DirectAngleJitter, cfg.DirectAngleJitter)
			speed = dist * cfg.DirectSpeedFactor * (1 + s.rng.Range(-cfg.DirectSpeedJitter, cfg.DirectSpeedJitter))
		} else {
			angle = req.UpAngle + s.rng.Range(-cfg.SkyHalfAngle, cfg.SkyHalfAngle)
			speed = s.rng.Range(cfg.MinSpeedFactor*cfg.MaxSpeed, cfg.MaxSpeed)
		}
		speed = math.Min(speed, cfg.MaxSpeed)
		angle = core.NormalizeAngle(angle)

		tried++
		res, err := eval.Evaluate(req.shot(angle, speed))
		if err != nil {
			return nil, fmt.Errorf("evaluate attempt %d: %w", i, err)
		}
		if res.Hit {
			best = &core.FiringSolution{Angle: angle, Speed: speed, Hit: true}
			return best, nil
		}
		if res.HitFriendly {
			s.vetoes.Add(context.Background(), 1)
			continue
		}
		if best == nil || res.ClosestDist < best.ClosestDist {
			best = &core.FiringSolution{Angle: angle, Speed: speed, ClosestDist: res.ClosestDist}
		}
	}
	return best, nil
}
