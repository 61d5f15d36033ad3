package geo

import (
	"math"
	"sort"

	"github.com/OCAP2/artillery/pkg/core"
)

const minTriangleArea = 1e-9

// Triangle is a counter-clockwise triangle.
type Triangle [3]core.Vec2

// Area returns the triangle's unsigned area.
func (t Triangle) Area() float64 {
	return math.Abs(orient(t[0], t[1], t[2])) / 2
}

// Centroid returns the mean of the three vertices.
func (t Triangle) Centroid() core.Vec2 {
	return t[0].Add(t[1]).Add(t[2]).Scale(1.0 / 3)
}

// Contains reports whether p lies inside or on the triangle.
func (t Triangle) Contains(p core.Vec2) bool {
	return orient(t[0], t[1], p) >= -rayEpsilon &&
		orient(t[1], t[2], p) >= -rayEpsilon &&
		orient(t[2], t[0], p) >= -rayEpsilon
}

// ClosestPoint returns the point of the triangle (boundary or interior) nearest to p.
func (t Triangle) ClosestPoint(p core.Vec2) core.Vec2 {
	a, b, c := t[0], t[1], t[2]
	ab, ac, ap := b.Sub(a), c.Sub(a), p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Scale(d1 / (d1 - d3)))
	}
	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Scale(d2 / (d2 - d6)))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		return b.Add(c.Sub(b).Scale((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}
	denom := 1 / (va + vb + vc)
	return a.Add(ab.Scale(vb * denom)).Add(ac.Scale(vc * denom))
}

// Triangulate ear-clips every region of the set. Near-zero-area triangles are skipped.
func (s RegionSet) Triangulate() []Triangle {
	var out []Triangle
	for _, r := range s.regions {
		out = append(out, Triangulate(r)...)
	}
	return out
}

// Triangulate ear-clips one region, bridging its holes into the outer ring first.
func Triangulate(r Region) []Triangle {
	if len(r.Outer) < 3 {
		return nil
	}
	return earClip(bridgeHoles(r.Outer.CCW(), r.Holes))
}

// bridgeHoles splices each hole into the outer ring through a mutually visible vertex pair,
// producing one weakly simple ring. Holes with no visible bridge are dropped.
func bridgeHoles(outer Ring, holes []Ring) Ring {
	if len(holes) == 0 {
		return outer
	}
	hs := make([]Ring, 0, len(holes))
	for _, h := range holes {
		if len(h) >= 3 {
			hs = append(hs, h.CW())
		}
	}
	sort.SliceStable(hs, func(i, j int) bool {
		return maxX(hs[i]) > maxX(hs[j])
	})

	poly := outer
	for k, h := range hs {
		mi := 0
		for i, p := range h {
			if p.X > h[mi].X {
				mi = i
			}
		}
		best := bridgeVertex(poly, h, mi, hs[k:], true)
		if best < 0 {
			best = bridgeVertex(poly, h, mi, hs[k:], false)
		}
		if best < 0 {
			continue
		}
		next := make(Ring, 0, len(poly)+len(h)+2)
		next = append(next, poly[:best+1]...)
		next = append(next, h[mi:]...)
		next = append(next, h[:mi+1]...)
		next = append(next, poly[best:]...)
		poly = next
	}
	return poly
}

// bridgeVertex returns the index of the poly vertex nearest to h[mi] that it can be joined to,
// or -1. With cones set, the bridge must also leave both rings into solid terrain.
func bridgeVertex(poly, h Ring, mi int, holes []Ring, cones bool) int {
	m := h[mi]
	mPrev, mNext := h[(mi+len(h)-1)%len(h)], h[(mi+1)%len(h)]
	best, bestD := -1, math.Inf(1)
	for i, v := range poly {
		d := v.Dist(m)
		if d >= bestD || d == 0 {
			continue
		}
		if cones {
			vPrev, vNext := poly[(i+len(poly)-1)%len(poly)], poly[(i+1)%len(poly)]
			if !inCone(vPrev, v, vNext, m) || !inCone(mPrev, m, mNext, v) {
				continue
			}
		}
		if visible(m, v, poly, holes) {
			best, bestD = i, d
		}
	}
	return best
}

// inCone reports whether the direction from v toward p points into the material at vertex v,
// where the material lies left of prev→v→next.
func inCone(prev, v, next, p core.Vec2) bool {
	if orient(prev, v, next) >= 0 {
		return orient(v, p, prev) > 0 && orient(p, v, next) > 0
	}
	return !(orient(v, p, next) >= 0 && orient(p, v, prev) >= 0)
}

func visible(a, b core.Vec2, poly Ring, holes []Ring) bool {
	blocked := func(r Ring) bool {
		for i := range r {
			if SegmentsIntersect(a, b, r[i], r[(i+1)%len(r)]) {
				return true
			}
		}
		return false
	}
	if blocked(poly) {
		return false
	}
	for _, h := range holes {
		if blocked(h) {
			return false
		}
	}
	return true
}

func maxX(r Ring) float64 {
	m := math.Inf(-1)
	for _, p := range r {
		m = math.Max(m, p.X)
	}
	return m
}

// earClip triangulates a weakly simple counter-clockwise ring. Bridged rings repeat the two
// bridge vertices, so ear tests work on ring positions rather than coordinates.
func earClip(poly Ring) []Triangle {
	n := len(poly)
	if n < 3 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	tris := make([]Triangle, 0, n-2)
	emit := func(a, b, c core.Vec2) {
		t := Triangle{a, b, c}
		if orient(a, b, c) > 0 && t.Area() > minTriangleArea {
			tris = append(tris, t)
		}
	}

	cursor := 0
	for len(idx) > 3 {
		m := len(idx)
		ear := -1
		for _, strict := range []bool{true, false} {
			for k := 0; k < m && ear < 0; k++ {
				i := (cursor + k) % m
				if isEar(poly, idx, i, strict) {
					ear = i
				}
			}
			if ear >= 0 {
				break
			}
		}
		if ear < 0 {
			// No convex ear left (collinear runs or rounding): drop the flattest vertex.
			flat, flatV := 0, math.Inf(1)
			for i := 0; i < m; i++ {
				a, b, c := poly[idx[(i+m-1)%m]], poly[idx[i]], poly[idx[(i+1)%m]]
				if v := math.Abs(orient(a, b, c)); v < flatV {
					flat, flatV = i, v
				}
			}
			idx = append(idx[:flat], idx[flat+1:]...)
			cursor = 0
			continue
		}
		emit(poly[idx[(ear+m-1)%m]], poly[idx[ear]], poly[idx[(ear+1)%m]])
		idx = append(idx[:ear], idx[ear+1:]...)
		cursor = (ear + len(idx) - 1) % len(idx)
	}
	emit(poly[idx[0]], poly[idx[1]], poly[idx[2]])
	return tris
}

// isEar reports whether position i of the remaining ring can be clipped. The triangle must be
// convex, hold no other vertex, and no remaining edge may enter it or cross its diagonal.
// Without strict, only vertices strictly inside disqualify a convex ear.
func isEar(poly Ring, idx []int, i int, strict bool) bool {
	m := len(idx)
	pi, ni := (i+m-1)%m, (i+1)%m
	a, b, c := poly[idx[pi]], poly[idx[i]], poly[idx[ni]]
	if orient(a, b, c) <= minTriangleArea {
		return false
	}
	t := Triangle{a, b, c}
	for j := 0; j < m; j++ {
		if j == pi || j == i || j == ni {
			continue
		}
		p := poly[idx[j]]
		if t.strictlyContains(p) {
			return false
		}
		if !strict {
			continue
		}
		if t.Contains(p) {
			prev, next := poly[idx[(j+m-1)%m]], poly[idx[(j+1)%m]]
			if t.enters(p, prev) || t.enters(p, next) {
				return false
			}
		}
		q := poly[idx[(j+1)%m]]
		if SegmentsIntersect(a, c, p, q) {
			return false
		}
	}
	return true
}

func (t Triangle) strictlyContains(p core.Vec2) bool {
	return orient(t[0], t[1], p) > rayEpsilon &&
		orient(t[1], t[2], p) > rayEpsilon &&
		orient(t[2], t[0], p) > rayEpsilon
}

// enters reports whether the segment from p, a point on the triangle's boundary, toward q
// passes through the triangle's interior.
func (t Triangle) enters(p, q core.Vec2) bool {
	if t.strictlyContains(q) {
		return true
	}
	d := q.Sub(p)
	for k := range 3 {
		x, next, prev := t[k], t[(k+1)%3], t[(k+2)%3]
		if p == x {
			return next.Sub(x).Cross(d) > rayEpsilon && d.Cross(prev.Sub(x)) > rayEpsilon
		}
	}
	for k := range 3 {
		e0, e1 := t[k], t[(k+1)%3]
		if math.Abs(orient(e0, e1, p)) <= rayEpsilon {
			if e1.Sub(e0).Cross(d) > rayEpsilon {
				return true
			}
		}
	}
	for k := range 3 {
		if SegmentsIntersect(p, q, t[k], t[(k+1)%3]) {
			return true
		}
	}
	return false
}
