// Package gravity computes the inverse-square pull of terrain bodies on a point mass.
package gravity

import (
	"math"

	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/pkg/core"
)

// Config holds the field tunables.
type Config struct {
	G             float64
	MassPerRadius float64
	// MinDistanceFactor clamps the distance to radius*factor near the center.
	MinDistanceFactor float64
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{G: 1000, MassPerRadius: 10, MinDistanceFactor: 0.3}
}

// Source is an attracting body.
type Source struct {
	Center core.Vec2
	Radius float64
}

// Sources converts terrain bodies into gravity sources. Fully destroyed bodies exert no pull.
func Sources(bodies []*terrain.Body) []Source {
	out := make([]Source, 0, len(bodies))
	for _, b := range bodies {
		if b.Destroyed() {
			continue
		}
		out = append(out, Source{Center: b.Center, Radius: b.Radius})
	}
	return out
}

// Field is an immutable set of sources.
type Field struct {
	cfg     Config
	sources []Source
}

// NewField creates a field over the given sources.
func NewField(cfg Config, sources []Source) *Field {
	s := make([]Source, len(sources))
	copy(s, sources)
	return &Field{cfg: cfg, sources: s}
}

// Mass returns the mass scalar of a body with the given radius.
func (f *Field) Mass(radius float64) float64 {
	return radius * f.cfg.MassPerRadius
}

// Force returns the summed force on a point of the given mass at p.
func (f *Field) Force(p core.Vec2, mass float64) core.Vec2 {
	var total core.Vec2
	for _, s := range f.sources {
		delta := s.Center.Sub(p)
		d := delta.Len()
		if d == 0 {
			continue
		}
		clamped := math.Max(d, s.Radius*f.cfg.MinDistanceFactor)
		magnitude := f.cfg.G * f.Mass(s.Radius) * mass / (clamped * clamped)
		total = total.Add(delta.Scale(magnitude / d))
	}
	return total
}
