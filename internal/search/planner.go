package search

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/OCAP2/artillery/internal/ballistics"
	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/pkg/core"
)

// Shooter is the mount a plan is made for.
type Shooter struct {
	MountID int
	Muzzle  core.Vec2
	UpAngle float64
	Team    core.TeamID
}

// Target is an enemy mount the planner may aim at.
type Target struct {
	MountID  int
	BodyID   int
	Position core.Vec2
	Radius   float64
	Priority float64
}

// Plan is an aimed, noise-perturbed and re-validated shot.
type Plan struct {
	TargetMountID int
	Solution      core.FiringSolution
}

// Velocity returns the launch velocity of the plan.
func (p Plan) Velocity() core.Vec2 { return p.Solution.Velocity() }

// Priority scores a target: damaged and close enemies first.
func Priority(shooter, target core.Vec2, healthFraction float64) float64 {
	return 10*(1-healthFraction) + 500/math.Max(shooter.Dist(target), 50)
}

// Planner chooses a target and a safe noisy shot for one mount.
type Planner struct {
	sim      *ballistics.Simulator
	searcher *Searcher
	rng      *rng.Rand
}

// NewPlanner creates a planner. The searcher and the planner may share r.
func NewPlanner(sim *ballistics.Simulator, searcher *Searcher, r *rng.Rand) *Planner {
	return &Planner{sim: sim, searcher: searcher, rng: r}
}

// Plan tries up to TargetAttempts targets from a jittered priority order. Each solution is
// perturbed to model imperfect aim and re-checked; a noisy shot that would strike a friendly
// body is discarded. It returns nil when no safe shot was found.
func (p *Planner) Plan(shooter Shooter, enemies []Target, bodies []*terrain.Body) (*Plan, error) {
	if len(enemies) == 0 {
		return nil, nil
	}
	cfg := p.searcher.cfg

	type weighted struct {
		Target
		weight float64
	}
	pool := make([]weighted, len(enemies))
	for i, e := range enemies {
		pool[i] = weighted{Target: e, weight: e.Priority + p.rng.Float()*cfg.PriorityJitter}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].weight > pool[j].weight })

	batch, err := p.sim.NewBatch(bodies)
	if err != nil {
		return nil, err
	}
	defer batch.Release()

	for attempt := 0; attempt < cfg.TargetAttempts; attempt++ {
		t := pool[attempt%len(pool)]
		req := Request{
			Origin:       shooter.Muzzle,
			UpAngle:      shooter.UpAngle,
			Team:         shooter.Team,
			Target:       t.Position,
			TargetRadius: t.Radius,
			TargetBody:   t.BodyID,
		}
		sol, err := p.searcher.Solve(batch, req)
		if err != nil {
			return nil, err
		}
		if sol == nil {
			continue
		}

		noisy := core.FiringSolution{
			Angle: core.NormalizeAngle(sol.Angle + p.rng.Range(-cfg.AimNoiseAngle, cfg.AimNoiseAngle)),
			Speed: math.Min(cfg.MaxSpeed, sol.Speed*(1+p.rng.Range(-cfg.AimNoiseSpeed, cfg.AimNoiseSpeed))),
		}
		res, err := batch.Evaluate(req.shot(noisy.Angle, noisy.Speed))
		if err != nil {
			return nil, fmt.Errorf("re-validate noisy shot: %w", err)
		}
		if res.HitFriendly {
			p.searcher.vetoes.Add(context.Background(), 1)
			continue
		}
		noisy.Hit = res.Hit
		noisy.ClosestDist = res.ClosestDist
		return &Plan{TargetMountID: t.MountID, Solution: noisy}, nil
	}
	return nil, nil
}
