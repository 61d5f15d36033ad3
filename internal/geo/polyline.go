package geo

import (
	"math"

	"github.com/OCAP2/artillery/pkg/core"
)

// Ring is an open closed-polygon boundary: the last vertex connects back to the first and is
// not repeated.
type Ring []core.Vec2

// Flat returns the ring as a flat [x0,y0,x1,y1,...] sequence.
func (r Ring) Flat() []float64 {
	out := make([]float64, 0, len(r)*2)
	for _, p := range r {
		out = append(out, p.X, p.Y)
	}
	return out
}

// SignedArea is positive for counter-clockwise rings.
func (r Ring) SignedArea() float64 {
	var sum float64
	for i := range r {
		a, b := r[i], r[(i+1)%len(r)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area.
func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// Reversed returns a copy with opposite winding.
func (r Ring) Reversed() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// CCW returns the ring wound counter-clockwise.
func (r Ring) CCW() Ring {
	if r.SignedArea() < 0 {
		return r.Reversed()
	}
	return r.clone()
}

// CW returns the ring wound clockwise.
func (r Ring) CW() Ring {
	if r.SignedArea() > 0 {
		return r.Reversed()
	}
	return r.clone()
}

// Translate returns the ring shifted by d.
func (r Ring) Translate(d core.Vec2) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = p.Add(d)
	}
	return out
}

// Contains reports whether p lies inside the ring (even-odd rule).
func (r Ring) Contains(p core.Vec2) bool {
	inside := false
	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[i], r[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func (r Ring) clone() Ring {
	out := make(Ring, len(r))
	copy(out, r)
	return out
}
