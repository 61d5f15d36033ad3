package geo

import (
	"math"

	"github.com/OCAP2/artillery/pkg/core"
)

const rayEpsilon = 1e-9

// RaySegment intersects the ray origin+t*dir (t ≥ 0) with segment a-b and returns t.
func RaySegment(origin, dir, a, b core.Vec2) (float64, bool) {
	e := b.Sub(a)
	denom := dir.Cross(e)
	if math.Abs(denom) < rayEpsilon {
		return 0, false
	}
	w := a.Sub(origin)
	t := w.Cross(e) / denom
	u := w.Cross(dir) / denom
	if t < 0 || u < -rayEpsilon || u > 1+rayEpsilon {
		return 0, false
	}
	return t, true
}

// FarthestHit casts a ray from origin along angle against every ring edge of the set and
// returns the distance to the farthest crossing. ok is false when no edge is crossed.
func (s RegionSet) FarthestHit(origin core.Vec2, angle float64) (dist float64, ok bool) {
	dir := core.FromAngle(angle, 1)
	scan := func(r Ring) {
		for i := range r {
			if t, hit := RaySegment(origin, dir, r[i], r[(i+1)%len(r)]); hit && (!ok || t > dist) {
				dist, ok = t, true
			}
		}
	}
	for _, r := range s.regions {
		scan(r.Outer)
		for _, h := range r.Holes {
			scan(h)
		}
	}
	return dist, ok
}

// SegmentsIntersect reports a proper crossing between p1-p2 and q1-q2. Touching at shared
// endpoints does not count.
func SegmentsIntersect(p1, p2, q1, q2 core.Vec2) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	return ((d1 > rayEpsilon && d2 < -rayEpsilon) || (d1 < -rayEpsilon && d2 > rayEpsilon)) &&
		((d3 > rayEpsilon && d4 < -rayEpsilon) || (d3 < -rayEpsilon && d4 > rayEpsilon))
}

func orient(a, b, c core.Vec2) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}
