package match

import (
	"math"
	"time"

	"github.com/OCAP2/artillery/internal/ballistics"
	"github.com/OCAP2/artillery/internal/mount"
	"github.com/OCAP2/artillery/internal/physics"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/pkg/core"
)

// underminedFactor is how far above the surface, in mount radii, a standing mount may be
// before it falls.
const underminedFactor = 1.5

// Update advances the turn machine by dt and steps the live world at the fixed time step while
// the Execution phase allows it. It returns the number of steps taken.
func (m *Match) Update(dt time.Duration) int {
	if !m.turns.Update(dt) {
		return 0
	}
	m.accumulator += dt
	n := 0
	for m.accumulator >= m.stepSize {
		m.accumulator -= m.stepSize
		m.advance()
		n++
	}
	return n
}

// Flush runs a pending Resolution → Planning flip immediately.
func (m *Match) Flush() { m.turns.Flush() }

func (m *Match) advance() {
	dt := m.cfg.Physics.TimeStep
	projectiles := m.Projectiles()
	falling := m.falling()

	for _, p := range projectiles {
		ballistics.StepBody(m.live, p.Handle, m.field)
	}
	for _, mt := range falling {
		ballistics.StepBody(m.live, m.handles[mt.ID], m.field)
	}

	contacts := m.live.Step(dt)
	for _, mt := range falling {
		mt.Position = m.live.Position(m.handles[mt.ID])
	}

	m.intercept()
	for _, c := range contacts {
		m.resolve(c)
	}
	m.expire(dt)
}

func (m *Match) falling() []*mount.Mount {
	var out []*mount.Mount
	for _, mt := range m.Mounts() {
		if mt.Falling {
			out = append(out, mt)
		}
	}
	return out
}

// intercept lets every defender take out the nearest enemy projectile closer than its range.
// Both are destroyed; projectiles of the same team never interact.
func (m *Match) intercept() {
	all := m.Projectiles()
	for _, d := range all {
		if d.Kind.Behavior != Intercept || m.projectiles[d.ID] == nil {
			continue
		}
		dp := m.live.Position(d.Handle)
		var target *Projectile
		best := d.Kind.InterceptRange
		for _, p := range all {
			if p.ID == d.ID || p.Team == d.Team || m.projectiles[p.ID] == nil {
				continue
			}
			if dist := dp.Dist(m.live.Position(p.Handle)); dist < best {
				best, target = dist, p
			}
		}
		if target == nil {
			continue
		}

		pos := dp.Add(m.live.Position(target.Handle)).Scale(0.5)
		m.logger.Debug("Projectile intercepted", "defender", d.ID, "target", target.ID, "distance", best)
		m.removeProjectile(d)
		m.removeProjectile(target)
		m.effects.Explosion(pos, d.Kind.ExplosionRadius, d.Kind.Name)
		m.recordImpact(d, 0, 0, pos)
	}
}

type pair struct{ a, b physics.BodyKind }

// resolve handles one contact. Pairs are ordered by kind so each combination has one case.
func (m *Match) resolve(c physics.Contact) {
	a, b := c.A, c.B
	if a.Kind > b.Kind {
		a, b = b, a
	}
	switch (pair{a.Kind, b.Kind}) {
	case pair{physics.KindProjectile, physics.KindProjectile}:
		// Only defenders interact with other shots, and they do so by range in intercept.
	case pair{physics.KindProjectile, physics.KindMount}:
		m.projectileHitsMount(a.ID, b.ID)
	case pair{physics.KindProjectile, physics.KindTerrain}:
		m.projectileHitsTerrain(a.ID, b.ID, c.Point)
	case pair{physics.KindMount, physics.KindMount}:
		// A falling mount brushing another mount keeps falling.
	case pair{physics.KindMount, physics.KindTerrain}:
		m.land(a.ID, b.ID)
	case pair{physics.KindTerrain, physics.KindTerrain}:
		// Colliders are static and never tested against each other.
	default:
		m.logger.Warn("Unhandled contact", "a", a.String(), "b", b.String())
	}
}

func (m *Match) projectileHitsMount(projectileID, mountID int) {
	p, mt := m.projectiles[projectileID], m.mounts[mountID]
	if p == nil || mt == nil {
		return
	}
	pos := m.live.Position(p.Handle)
	m.removeProjectile(p)
	bodyID := mt.BodyID
	if p.Kind.Behavior == Explode || p.Kind.Behavior == Intercept {
		m.damageMount(mt, p.Kind.Damage)
	}
	m.detonate(p, pos, bodyID, mountID)
}

func (m *Match) projectileHitsTerrain(projectileID, bodyID int, point core.Vec2) {
	p := m.projectiles[projectileID]
	if p == nil {
		return
	}
	m.removeProjectile(p)
	m.detonate(p, point, bodyID, 0)
}

// detonate applies a projectile's behavior at pos. bodyID is the body it struck or stands
// next to; direct is a mount already damaged by a direct hit.
func (m *Match) detonate(p *Projectile, pos core.Vec2, bodyID, direct int) {
	k := p.Kind
	m.effects.Explosion(pos, k.ExplosionRadius, k.Name)
	primary := m.body(bodyID)

	switch k.Behavior {
	case Explode, Intercept:
		for _, b := range m.bodies {
			if b.Destroyed() || pos.Dist(b.Center) > b.BoundingRadius()+k.ExplosionRadius {
				continue
			}
			if b.TakeDamage(pos.X, pos.Y, k.ExplosionRadius) {
				m.terrainChanged(b)
			}
		}
		m.splash(pos, k, direct)
	case Colonize:
		if primary != nil && !primary.Destroyed() {
			m.spawnMount(primary, pos.Sub(primary.Center).Angle(), p.Team)
		}
	case Build:
		if primary != nil && primary.AddBump(pos.X, pos.Y, k.ExplosionRadius, m.fx) {
			m.terrainChanged(primary)
		}
	}
	m.recordImpact(p, bodyID, direct, pos)
}

// splash damages mounts in the blast radius with linear falloff from the blast edge.
func (m *Match) splash(pos core.Vec2, k Kind, direct int) {
	if k.Damage <= 0 || k.ExplosionRadius <= 0 {
		return
	}
	for _, mt := range m.Mounts() {
		if mt.ID == direct {
			continue
		}
		d := math.Max(0, pos.Dist(mt.Position)-mt.Radius())
		if d >= k.ExplosionRadius {
			continue
		}
		m.damageMount(mt, k.Damage*(1-d/k.ExplosionRadius))
	}
}

func (m *Match) terrainChanged(b *terrain.Body) {
	m.dirty[b.ID] = true
	m.registerCollider(b)
	if b.Destroyed() {
		m.refreshGravity()
	}
	m.effects.TerrainChanged(b.ID, b.FlatRegions())
	m.undermine(b)
}

// undermine drops every mount left hanging above the new surface.
func (m *Match) undermine(b *terrain.Body) {
	for _, mt := range b.Mounts() {
		if mt.Falling {
			continue
		}
		if !b.Destroyed() && b.DistanceToSurface(mt.Position.X, mt.Position.Y) <= mt.Radius()*underminedFactor {
			continue
		}
		b.Detach(mt.ID)
		mt.Falling = true
		m.live.SetStatic(m.handles[mt.ID], false)
		m.recordMount(mt, core.MountFell)
	}
}

// land re-settles a falling mount on the surface it touched, facing outward.
func (m *Match) land(mountID, bodyID int) {
	mt, b := m.mounts[mountID], m.body(bodyID)
	if mt == nil || b == nil || !mt.Falling {
		return
	}
	angle := mt.Position.Sub(b.Center).Angle()
	pos := mt.Position
	if s, ok := b.SurfacePoint(angle); ok {
		pos = s.Add(core.FromAngle(angle, mt.Radius()))
	}
	h := m.handles[mt.ID]
	m.live.SetStatic(h, true)
	m.live.SetPosition(h, pos)
	mt.Settle(pos, angle)
	mt.BodyID = b.ID
	m.live.SetRotation(h, mt.Rotation)
	b.Attach(mt)
	m.recordMount(mt, core.MountLanded)
}

func (m *Match) damageMount(mt *mount.Mount, amount float64) {
	if mt.Damage(amount) {
		m.destroyMount(mt)
	}
}

func (m *Match) destroyMount(mt *mount.Mount) {
	if _, ok := m.mounts[mt.ID]; !ok {
		return
	}
	if b := m.body(mt.BodyID); b != nil {
		b.Detach(mt.ID)
	}
	mt.Health = 0
	mt.Disarm()
	m.live.Remove(m.handles[mt.ID])
	delete(m.mounts, mt.ID)
	delete(m.handles, mt.ID)
	m.effects.MountDestroyed(mt.ID, mt.Position)
	m.recordMount(mt, core.MountDestroyed)
}

// expire ages projectiles and removes those past their lifetime or out of bounds, along with
// mounts that fell out of the world.
func (m *Match) expire(dt float64) {
	lifetime := m.cfg.ProjectileLifetime.Seconds()
	for _, p := range m.Projectiles() {
		p.Age += dt
		if (lifetime > 0 && p.Age >= lifetime) || m.live.OutOfBounds(m.live.Position(p.Handle)) {
			m.removeProjectile(p)
		}
	}
	for _, mt := range m.falling() {
		if m.live.OutOfBounds(mt.Position) {
			m.destroyMount(mt)
		}
	}
}
