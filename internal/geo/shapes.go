package geo

import (
	"math"

	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/pkg/core"
)

// RegularPolygon approximates a circle with segments vertices, counter-clockwise from angle 0.
func RegularPolygon(center core.Vec2, radius float64, segments int) Ring {
	if segments < 3 || radius <= 0 {
		return nil
	}
	ring := make(Ring, segments)
	step := 2 * math.Pi / float64(segments)
	for i := range ring {
		ring[i] = center.Add(core.FromAngle(float64(i)*step, radius))
	}
	return ring
}

// NoisyPolygon is a regular polygon whose vertex radii are scaled by 1±jitter.
func NoisyPolygon(center core.Vec2, radius float64, segments int, jitter float64, r *rng.Rand) Ring {
	ring := RegularPolygon(center, radius, segments)
	for i, p := range ring {
		d := p.Sub(center).Scale(1 + r.Range(-jitter, jitter))
		ring[i] = center.Add(d)
	}
	return ring
}

// Wedge builds an annular sector between from and to (radians, counter-clockwise) whose outer
// edge follows heights: heights[i] is the outer radius at the i-th evenly spaced angle.
func Wedge(center core.Vec2, from, to, inner float64, heights []float64) Ring {
	if len(heights) < 2 || to <= from {
		return nil
	}
	ring := make(Ring, 0, len(heights)+2)
	step := (to - from) / float64(len(heights)-1)
	ring = append(ring, center.Add(core.FromAngle(from, inner)))
	for i, h := range heights {
		ring = append(ring, center.Add(core.FromAngle(from+float64(i)*step, h)))
	}
	ring = append(ring, center.Add(core.FromAngle(to, inner)))
	return ring.CCW()
}
