// Package terrain implements destructible planets: a region set in body-local coordinates,
// the triangle collider derived from it, and surface queries.
package terrain

import (
	"log/slog"
	"math"

	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/mount"
	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/pkg/core"
)

// Body is one planet. Center never moves.
type Body struct {
	ID     int
	Center core.Vec2
	Radius float64
	// Team is the owner assigned at layout time; see ControllerTeam for live control.
	Team core.TeamID

	cfg      Config
	logger   *slog.Logger
	regions  geo.RegionSet
	collider []geo.Triangle
	mounts   []*mount.Mount
	version  uint64
}

// Option configures a Body.
type Option func(*Body)

// WithLogger sets the logger used for skipped edits.
func WithLogger(l *slog.Logger) Option {
	return func(b *Body) { b.logger = l }
}

// WithRegions replaces the generated silhouette, e.g. when restoring a stored match.
func WithRegions(set geo.RegionSet) Option {
	return func(b *Body) { b.regions = set }
}

// New generates a body from seed. The same seed, radius and config always produce the same
// regions.
func New(id int, center core.Vec2, seed int64, radius float64, cfg Config, opts ...Option) *Body {
	b := &Body{
		ID:     id,
		Center: center,
		Radius: radius,
		cfg:    cfg,
		logger: slog.Default(),
	}
	b.regions = generate(rng.New(seed), radius, cfg)
	for _, opt := range opts {
		opt(b)
	}
	b.RebuildCollider()
	return b
}

// Regions returns the current silhouette in body-local coordinates.
func (b *Body) Regions() geo.RegionSet { return b.regions }

// FlatRegions returns each region's outer ring in world space as [x0,y0,x1,y1,...].
func (b *Body) FlatRegions() [][]float64 {
	out := make([][]float64, 0, b.regions.Len())
	for _, r := range b.regions.Regions() {
		out = append(out, r.Outer.Translate(b.Center).Flat())
	}
	return out
}

// Version increases every time the regions change.
func (b *Body) Version() uint64 { return b.version }

// Destroyed reports whether nothing of the body remains.
func (b *Body) Destroyed() bool { return b.regions.IsEmpty() }

// Collider returns the world-space triangles of the current silhouette.
func (b *Body) Collider() []geo.Triangle {
	out := make([]geo.Triangle, len(b.collider))
	copy(out, b.collider)
	return out
}

// BoundingRadius is the distance from the center to the farthest vertex.
func (b *Body) BoundingRadius() float64 {
	return b.regions.MaxRadius(core.Vec2{})
}

// RebuildCollider re-triangulates every region and replaces the collider.
func (b *Body) RebuildCollider() {
	local := b.regions.Triangulate()
	world := make([]geo.Triangle, len(local))
	for i, t := range local {
		world[i] = geo.Triangle{t[0].Add(b.Center), t[1].Add(b.Center), t[2].Add(b.Center)}
	}
	b.collider = world
}

// TakeDamage carves a disc at a world position. It reports whether any terrain was removed.
func (b *Body) TakeDamage(worldX, worldY, radius float64) bool {
	local := core.V(worldX, worldY).Sub(b.Center)
	cut := geo.RegularPolygon(local, radius, b.cfg.ImpactSegments)
	next, err := b.regions.Difference(cut)
	if err != nil {
		b.logger.Debug("Skipped terrain carve", "body", b.ID, "x", worldX, "y", worldY, "radius", radius, "error", err)
		return false
	}
	return b.replace(next)
}

// AddBump unions a noisy disc at a world position. It reports whether terrain was added.
func (b *Body) AddBump(worldX, worldY, radius float64, r *rng.Rand) bool {
	local := core.V(worldX, worldY).Sub(b.Center)
	add := geo.NoisyPolygon(local, radius, b.cfg.BumpSegments, b.cfg.BumpJitter, r)
	next, err := b.regions.Union(add)
	if err != nil {
		b.logger.Debug("Skipped terrain bump", "body", b.ID, "x", worldX, "y", worldY, "radius", radius, "error", err)
		return false
	}
	return b.replace(next)
}

func (b *Body) replace(next geo.RegionSet) bool {
	if math.Abs(next.Area()-b.regions.Area()) < 1e-9 && next.Len() == b.regions.Len() {
		return false
	}
	b.regions = next
	b.version++
	b.RebuildCollider()
	return true
}

// SurfaceDistanceAtAngle returns the farthest edge crossing along angle from the center.
// ok is false when nothing of the body lies along that ray.
func (b *Body) SurfaceDistanceAtAngle(angle float64) (dist float64, ok bool) {
	return b.regions.FarthestHit(core.Vec2{}, angle)
}

// DistanceToSurface is negative inside the terrain and positive above it. Along a ray with no
// surface the point is measured from the center.
func (b *Body) DistanceToSurface(worldX, worldY float64) float64 {
	rel := core.V(worldX, worldY).Sub(b.Center)
	d := rel.Len()
	s, ok := b.SurfaceDistanceAtAngle(rel.Angle())
	if !ok {
		return d
	}
	return d - s
}

// SurfacePoint returns the world position of the surface along angle.
func (b *Body) SurfacePoint(angle float64) (core.Vec2, bool) {
	s, ok := b.SurfaceDistanceAtAngle(angle)
	if !ok {
		return core.Vec2{}, false
	}
	return b.Center.Add(core.FromAngle(angle, s)), true
}

// Attach adds a mount to the body.
func (b *Body) Attach(m *mount.Mount) {
	b.mounts = append(b.mounts, m)
}

// Detach removes the mount with the given id.
func (b *Body) Detach(id int) {
	for i, m := range b.mounts {
		if m.ID == id {
			b.mounts = append(b.mounts[:i], b.mounts[i+1:]...)
			return
		}
	}
}

// Mounts returns the attached mounts.
func (b *Body) Mounts() []*mount.Mount {
	out := make([]*mount.Mount, len(b.mounts))
	copy(out, b.mounts)
	return out
}

// ControllerTeam returns the team controlling the body: only when at least one mount is
// attached and all mounts share the same team.
func (b *Body) ControllerTeam() (core.TeamID, bool) {
	if len(b.mounts) == 0 {
		return core.NoTeam, false
	}
	team := b.mounts[0].Team
	if !team.Valid() {
		return core.NoTeam, false
	}
	for _, m := range b.mounts[1:] {
		if m.Team != team {
			return core.NoTeam, false
		}
	}
	return team, true
}
