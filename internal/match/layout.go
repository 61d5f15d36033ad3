package match

import (
	"fmt"
	"math"

	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/pkg/core"
)

const placementAttempts = 200

type planet struct {
	center core.Vec2
	radius float64
	team   core.TeamID
	seed   int64
}

// layout places non-overlapping planets inside the world disc. The first Teams planets are
// owned, one per team.
func layout(cfg Config, r *rng.Rand) ([]planet, error) {
	out := make([]planet, 0, cfg.Planets)
	for i := range cfg.Planets {
		p, ok := place(cfg, r, out)
		if !ok {
			return nil, fmt.Errorf("planet %d of %d does not fit: %w", i+1, cfg.Planets, ErrInvalid)
		}
		p.seed = int64(r.Uint32())
		if i < cfg.Teams {
			p.team = core.TeamID(i + 1)
		}
		out = append(out, p)
	}
	return out, nil
}

func place(cfg Config, r *rng.Rand, placed []planet) (planet, bool) {
	for range placementAttempts {
		radius := r.Range(cfg.MinRadius, cfg.MaxRadius)
		center := core.FromAngle(r.Range(0, 2*math.Pi), r.Range(0, cfg.WorldRadius-radius))
		if fits(placed, center, radius, cfg.PlanetGap) {
			return planet{center: center, radius: radius}, true
		}
	}
	return planet{}, false
}

func fits(placed []planet, center core.Vec2, radius, gap float64) bool {
	for _, p := range placed {
		if center.Dist(p.center) < p.radius+radius+gap {
			return false
		}
	}
	return true
}

// mountAngles spreads n mounts evenly around a planet from a random start.
func mountAngles(n int, r *rng.Rand) []float64 {
	if n <= 0 {
		return nil
	}
	base := r.Range(0, 2*math.Pi)
	out := make([]float64, n)
	for i := range out {
		out[i] = core.NormalizeAngle(base + 2*math.Pi*float64(i)/float64(n))
	}
	return out
}
