package terrain

import (
	"math"

	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/pkg/core"
)

// span is a reserved angular interval, center ± half.
type span struct {
	center, half float64
}

func (s span) overlaps(o span) bool {
	return math.Abs(core.NormalizeAngle(s.center-o.center)) < s.half+o.half
}

func reserve(reserved []span, s span) ([]span, bool) {
	for _, r := range reserved {
		if r.overlaps(s) {
			return reserved, false
		}
	}
	return append(reserved, s), true
}

// generate builds the base circle and applies non-overlapping craters and mountains.
func generate(r *rng.Rand, radius float64, cfg Config) geo.RegionSet {
	origin := core.Vec2{}
	set := geo.NewRegionSet(geo.Region{Outer: geo.RegularPolygon(origin, radius, cfg.segmentsFor(radius))})

	wantCraters := r.Int(min(1, cfg.MaxCraters), cfg.MaxCraters+1)
	wantMountains := r.Int(min(1, cfg.MaxMountains), cfg.MaxMountains+1)
	var reserved []span
	craters, mountains := 0, 0

	for attempt := 0; attempt < cfg.EditAttempts; attempt++ {
		if craters >= wantCraters && mountains >= wantMountains {
			break
		}
		crater := craters < wantCraters && (mountains >= wantMountains || r.Float() < 0.5)
		angle := r.Range(-math.Pi, math.Pi)

		if crater {
			size := radius * r.Range(cfg.CraterMin, cfg.CraterMax)
			var ok bool
			if reserved, ok = reserve(reserved, span{angle, math.Asin(math.Min(1, size/radius))}); !ok {
				continue
			}
			at := core.FromAngle(angle, radius*r.Range(0.95, 1.05))
			next, err := set.Difference(geo.NoisyPolygon(at, size, cfg.CraterSegments, cfg.Jitter, r))
			if err == nil {
				set = next
			}
			craters++
			continue
		}

		half := r.Range(cfg.MountainSpanMin, cfg.MountainSpanMax) / 2
		var ok bool
		if reserved, ok = reserve(reserved, span{angle, half}); !ok {
			continue
		}
		height := radius * r.Range(cfg.MountainMin, cfg.MountainMax)
		n := max(3, cfg.MountainPoints)
		heights := make([]float64, n)
		for i := range heights {
			profile := math.Sin(math.Pi * float64(i) / float64(n-1))
			heights[i] = radius*0.98 + height*profile*(1+r.Range(-cfg.Jitter, cfg.Jitter))
		}
		next, err := set.Union(geo.Wedge(origin, angle-half, angle+half, radius*0.8, heights))
		if err == nil {
			set = next
		}
		mountains++
	}
	return set
}
