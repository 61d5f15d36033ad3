// Package ballistics steps projectiles under gravity, live and in disposable shadow worlds.
package ballistics

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/artillery/internal/gravity"
	"github.com/OCAP2/artillery/internal/physics"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/pkg/core"
)

// ErrReleased is returned when evaluating on a batch whose shadow world was released.
var ErrReleased = errors.New("ballistics batch released")

// Config holds simulation tunables.
type Config struct {
	MaxSteps         int
	ProjectileRadius float64
	ProjectileMass   float64
}

// DefaultConfig returns the stock tunables: 300 steps is five seconds at 60 Hz.
func DefaultConfig() Config {
	return Config{MaxSteps: 300, ProjectileRadius: 3, ProjectileMass: 1}
}

// StepBody applies gravity to one dynamic body ahead of a world step. Live play and shadow
// simulations both go through here so that predictions match what actually happens.
func StepBody(w *physics.World, h physics.Handle, field *gravity.Field) {
	w.ApplyForce(h, field.Force(w.Position(h), w.Mass(h)))
}

// Shot is one candidate trajectory.
type Shot struct {
	Origin       core.Vec2
	Velocity     core.Vec2
	Team         core.TeamID
	Target       core.Vec2
	TargetRadius float64
	// TargetBody is the terrain id the target stands on; touching it ends the flight as a
	// plain miss instead of an obstacle hit. 0 means none.
	TargetBody int
}

// Result is the outcome of one simulated flight.
type Result struct {
	Hit         bool
	ClosestDist float64
	HitFriendly bool
	Steps       int
	// Obstacle is the terrain id that stopped the flight, 0 if none.
	Obstacle    int
	OutOfBounds bool
}

// Simulator creates shadow batches on an engine.
type Simulator struct {
	engine  *physics.Engine
	gravity gravity.Config
	cfg     Config
}

// NewSimulator creates a simulator.
func NewSimulator(engine *physics.Engine, g gravity.Config, cfg Config) *Simulator {
	return &Simulator{engine: engine, gravity: g, cfg: cfg}
}

// Config returns the simulation tunables.
func (s *Simulator) Config() Config { return s.cfg }

// Gravity returns the gravity tunables.
func (s *Simulator) Gravity() gravity.Config { return s.gravity }

// TimeStep returns the fixed step of the underlying engine.
func (s *Simulator) TimeStep() float64 { return s.engine.Config().TimeStep }

// Batch is one shadow world seeded with terrain colliders. Evaluate may be called any number of
// times; Release must be called once the batch is no longer needed.
type Batch struct {
	sim    *Simulator
	world  *physics.World
	bodies []*terrain.Body
	field  *gravity.Field
}

// NewBatch creates a shadow world holding static colliders copied from bodies.
func (s *Simulator) NewBatch(bodies []*terrain.Body) (*Batch, error) {
	w, err := s.engine.NewShadow()
	if err != nil {
		return nil, fmt.Errorf("new batch: %w", err)
	}
	live := make([]*terrain.Body, 0, len(bodies))
	for _, b := range bodies {
		if b.Destroyed() {
			continue
		}
		w.SetCollider(physics.Collider{
			Tag:       physics.TerrainTag(b.ID),
			Center:    b.Center,
			Bound:     b.BoundingRadius(),
			Triangles: b.Collider(),
		})
		live = append(live, b)
	}
	return &Batch{
		sim:    s,
		world:  w,
		bodies: live,
		field:  gravity.NewField(s.gravity, gravity.Sources(live)),
	}, nil
}

// Simulate evaluates a single shot in its own batch.
func (s *Simulator) Simulate(bodies []*terrain.Body, shot Shot) (Result, error) {
	b, err := s.NewBatch(bodies)
	if err != nil {
		return Result{}, err
	}
	defer b.Release()
	return b.Evaluate(shot)
}

// Release frees the shadow world.
func (b *Batch) Release() {
	b.world.Release()
}

// Evaluate flies shot for at most MaxSteps steps.
func (b *Batch) Evaluate(shot Shot) (Result, error) {
	return b.run(shot, nil)
}

// Trace flies shot like Evaluate and also returns every every-th position.
func (b *Batch) Trace(shot Shot, every int) ([]core.Vec2, Result, error) {
	every = max(1, every)
	var path []core.Vec2
	res, err := b.run(shot, func(step int, p core.Vec2) {
		if step%every == 0 {
			path = append(path, p)
		}
	})
	return path, res, err
}

func (b *Batch) run(shot Shot, visit func(int, core.Vec2)) (Result, error) {
	if b.world.Released() {
		return Result{}, ErrReleased
	}
	cfg := b.sim.cfg
	dt := b.sim.TimeStep()
	h := b.world.AddCircle(physics.ProjectileTag(0), shot.Origin, shot.Velocity, cfg.ProjectileRadius, cfg.ProjectileMass, false)
	defer b.world.Remove(h)

	reach := shot.TargetRadius + cfg.ProjectileRadius
	closest := math.Inf(1)
	for step := 1; step <= cfg.MaxSteps; step++ {
		StepBody(b.world, h, b.field)
		contacts := b.world.Step(dt)
		p := b.world.Position(h)
		if visit != nil {
			visit(step, p)
		}

		d := p.Dist(shot.Target)
		if d <= reach {
			return Result{Hit: true, ClosestDist: 0, Steps: step}, nil
		}
		closest = math.Min(closest, d)

		if body := b.struck(p, contacts); body != nil {
			res := Result{ClosestDist: closest, Steps: step}
			if body.ID != shot.TargetBody {
				res.Obstacle = body.ID
				team, ok := body.ControllerTeam()
				res.HitFriendly = ok && team == shot.Team
			}
			return res, nil
		}
		if b.world.OutOfBounds(p) {
			return Result{ClosestDist: closest, Steps: step, OutOfBounds: true}, nil
		}
	}
	return Result{ClosestDist: closest, Steps: cfg.MaxSteps}, nil
}

// struck returns the first body whose collider or surface the projectile touches.
func (b *Batch) struck(p core.Vec2, contacts []physics.Contact) *terrain.Body {
	for _, c := range contacts {
		if c.B.Kind != physics.KindTerrain {
			continue
		}
		for _, body := range b.bodies {
			if body.ID == c.B.ID {
				return body
			}
		}
	}
	r := b.sim.cfg.ProjectileRadius
	for _, body := range b.bodies {
		if body.DistanceToSurface(p.X, p.Y) < r {
			return body
		}
	}
	return nil
}
