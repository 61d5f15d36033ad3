package physics

import (
	"sort"

	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/mlange-42/ark/ecs"
)

// Position is the body center.
type Position struct{ core.Vec2 }

// Velocity is in units per second.
type Velocity struct{ core.Vec2 }

// Body carries the non-kinematic state of a circle body.
type Body struct {
	Tag      BodyTag
	Radius   float64
	Mass     float64
	Static   bool
	Rotation float64
	Force    core.Vec2
}

// Handle refers to a circle body in one World.
type Handle struct {
	entity ecs.Entity
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool { return h.entity.IsZero() }

// Collider is a static triangle set standing for one terrain body.
type Collider struct {
	Tag       BodyTag
	Center    core.Vec2
	Bound     float64
	Triangles []geo.Triangle
}

// Contact is an overlap found during a step. B is a terrain collider when HB is zero.
type Contact struct {
	A, B   BodyTag
	HA, HB Handle
	Point  core.Vec2
}

// BodyState is a read-only view of one circle body.
type BodyState struct {
	Handle   Handle
	Tag      BodyTag
	Position core.Vec2
	Velocity core.Vec2
	Rotation float64
	Radius   float64
	Static   bool
}

// World is one physics space: the live world or a shadow.
type World struct {
	cfg       Config
	ecs       *ecs.World
	spawn     *ecs.Map3[Position, Velocity, Body]
	pos       *ecs.Map[Position]
	vel       *ecs.Map[Velocity]
	body      *ecs.Map[Body]
	filter    *ecs.Filter3[Position, Velocity, Body]
	order     []ecs.Entity
	colliders []Collider
	released  bool
	onRelease func()
}

func newWorld(cfg Config, onRelease func()) *World {
	w := ecs.NewWorld(64)
	return &World{
		cfg:       cfg,
		ecs:       w,
		spawn:     ecs.NewMap3[Position, Velocity, Body](w),
		pos:       ecs.NewMap[Position](w),
		vel:       ecs.NewMap[Velocity](w),
		body:      ecs.NewMap[Body](w),
		filter:    ecs.NewFilter3[Position, Velocity, Body](w),
		onRelease: onRelease,
	}
}

// Config returns the world tunables.
func (w *World) Config() Config { return w.cfg }

// Release drops the world's storage. It is safe to call more than once.
func (w *World) Release() {
	if w.released {
		return
	}
	w.released = true
	w.order = nil
	w.colliders = nil
	w.ecs = nil
	if w.onRelease != nil {
		w.onRelease()
	}
}

// Released reports whether Release was called.
func (w *World) Released() bool { return w.released }

// AddCircle inserts a circle body.
func (w *World) AddCircle(tag BodyTag, pos, vel core.Vec2, radius, mass float64, static bool) Handle {
	if mass <= 0 {
		mass = 1
	}
	e := w.spawn.NewEntity(
		&Position{pos},
		&Velocity{vel},
		&Body{Tag: tag, Radius: radius, Mass: mass, Static: static},
	)
	w.order = append(w.order, e)
	return Handle{entity: e}
}

// Remove deletes a body. Stale handles are ignored.
func (w *World) Remove(h Handle) {
	if !w.Alive(h) {
		return
	}
	for i, e := range w.order {
		if e == h.entity {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.ecs.RemoveEntity(h.entity)
}

// Alive reports whether h still refers to a body in this world.
func (w *World) Alive(h Handle) bool {
	return !w.released && !h.IsZero() && w.ecs.Alive(h.entity)
}

// Len returns the number of circle bodies.
func (w *World) Len() int { return len(w.order) }

// Tag returns the body's tag.
func (w *World) Tag(h Handle) BodyTag { return w.body.Get(h.entity).Tag }

// Position returns the body center.
func (w *World) Position(h Handle) core.Vec2 { return w.pos.Get(h.entity).Vec2 }

// SetPosition teleports the body.
func (w *World) SetPosition(h Handle, p core.Vec2) { w.pos.Get(h.entity).Vec2 = p }

// Velocity returns the body velocity.
func (w *World) Velocity(h Handle) core.Vec2 { return w.vel.Get(h.entity).Vec2 }

// SetVelocity replaces the body velocity.
func (w *World) SetVelocity(h Handle, v core.Vec2) { w.vel.Get(h.entity).Vec2 = v }

// Radius returns the body radius.
func (w *World) Radius(h Handle) float64 { return w.body.Get(h.entity).Radius }

// Mass returns the body mass.
func (w *World) Mass(h Handle) float64 { return w.body.Get(h.entity).Mass }

// Rotation returns the body rotation.
func (w *World) Rotation(h Handle) float64 { return w.body.Get(h.entity).Rotation }

// SetRotation replaces the body rotation.
func (w *World) SetRotation(h Handle, r float64) { w.body.Get(h.entity).Rotation = r }

// Static reports whether the body is pinned.
func (w *World) Static(h Handle) bool { return w.body.Get(h.entity).Static }

// SetStatic pins or frees the body. Pinning clears its velocity.
func (w *World) SetStatic(h Handle, static bool) {
	b := w.body.Get(h.entity)
	b.Static = static
	if static {
		w.vel.Get(h.entity).Vec2 = core.Vec2{}
	}
}

// ApplyForce accumulates a force for the next step.
func (w *World) ApplyForce(h Handle, f core.Vec2) {
	b := w.body.Get(h.entity)
	b.Force = b.Force.Add(f)
}

// OutOfBounds reports whether p lies outside the world bounds.
func (w *World) OutOfBounds(p core.Vec2) bool {
	return w.cfg.Bounds > 0 && p.Len() > w.cfg.Bounds
}

// SetCollider adds or replaces the collider with the same tag.
func (w *World) SetCollider(c Collider) {
	tris := make([]geo.Triangle, len(c.Triangles))
	copy(tris, c.Triangles)
	c.Triangles = tris
	for i := range w.colliders {
		if w.colliders[i].Tag == c.Tag {
			w.colliders[i] = c
			return
		}
	}
	w.colliders = append(w.colliders, c)
	sort.Slice(w.colliders, func(i, j int) bool {
		return w.colliders[i].Tag.ID < w.colliders[j].Tag.ID
	})
}

// RemoveCollider drops the collider with the given tag.
func (w *World) RemoveCollider(tag BodyTag) {
	for i := range w.colliders {
		if w.colliders[i].Tag == tag {
			w.colliders = append(w.colliders[:i], w.colliders[i+1:]...)
			return
		}
	}
}

// Colliders returns the static colliders ordered by id.
func (w *World) Colliders() []Collider {
	out := make([]Collider, len(w.colliders))
	copy(out, w.colliders)
	return out
}

// Bodies returns every circle body in insertion order.
func (w *World) Bodies() []BodyState {
	out := make([]BodyState, 0, len(w.order))
	for _, e := range w.order {
		b := w.body.Get(e)
		out = append(out, BodyState{
			Handle:   Handle{entity: e},
			Tag:      b.Tag,
			Position: w.pos.Get(e).Vec2,
			Velocity: w.vel.Get(e).Vec2,
			Rotation: b.Rotation,
			Radius:   b.Radius,
			Static:   b.Static,
		})
	}
	return out
}

// Step integrates every dynamic body (semi-implicit Euler), clears accumulated forces and
// returns the overlaps found at the new positions.
func (w *World) Step(dt float64) []Contact {
	if w.released {
		return nil
	}
	damp := 1.0
	if w.cfg.Damping > 0 {
		damp = 1 / (1 + dt*w.cfg.Damping)
	}
	query := w.filter.Query()
	for query.Next() {
		p, v, b := query.Get()
		if b.Static {
			b.Force = core.Vec2{}
			continue
		}
		v.Vec2 = v.Add(b.Force.Scale(dt / b.Mass)).Scale(damp)
		p.Vec2 = p.Add(v.Scale(dt))
		b.Force = core.Vec2{}
	}
	return w.contacts()
}

func (w *World) contacts() []Contact {
	var out []Contact
	for i, ea := range w.order {
		a := w.body.Get(ea)
		pa := w.pos.Get(ea).Vec2
		if !a.Static {
			for _, c := range w.colliders {
				if pt, ok := c.touch(pa, a.Radius); ok {
					out = append(out, Contact{A: a.Tag, B: c.Tag, HA: Handle{ea}, Point: pt})
				}
			}
		}
		for _, eb := range w.order[i+1:] {
			b := w.body.Get(eb)
			if a.Static && b.Static {
				continue
			}
			pb := w.pos.Get(eb).Vec2
			if pa.Dist(pb) <= a.Radius+b.Radius {
				mid := pa.Add(pb.Sub(pa).Normalize().Scale(a.Radius))
				out = append(out, Contact{A: a.Tag, B: b.Tag, HA: Handle{ea}, HB: Handle{eb}, Point: mid})
			}
		}
	}
	return out
}

// touch reports the closest collider point to a circle overlapping it.
func (c Collider) touch(p core.Vec2, radius float64) (core.Vec2, bool) {
	if p.Dist(c.Center) > c.Bound+radius {
		return core.Vec2{}, false
	}
	for _, t := range c.Triangles {
		if t.Contains(p) {
			return p, true
		}
		if cp := t.ClosestPoint(p); cp.Dist(p) <= radius {
			return cp, true
		}
	}
	return core.Vec2{}, false
}
