// Package mount models turrets attached to terrain bodies.
package mount

import (
	"errors"
	"fmt"
	"math"

	"github.com/OCAP2/artillery/pkg/core"
)

var (
	// ErrInsufficientAP is returned when a mount cannot pay an action point cost.
	ErrInsufficientAP = errors.New("insufficient action points")
	// ErrDestroyed is returned when acting on a mount with no health left.
	ErrDestroyed = errors.New("mount destroyed")
)

// Config holds per-mount tunables.
type Config struct {
	MaxHealth float64
	MaxAP     int
	StartAP   int
	APPerTurn int
	// Radius is the collision radius of the mount body.
	Radius float64
	// MuzzleOffset is how far above the mount a projectile spawns.
	MuzzleOffset float64
}

// DefaultConfig returns the stock mount tunables.
func DefaultConfig() Config {
	return Config{
		MaxHealth:    100,
		MaxAP:        5,
		StartAP:      2,
		APPerTurn:    2,
		Radius:       8,
		MuzzleOffset: 14,
	}
}

// Armed is a shot waiting for the next execution phase.
type Armed struct {
	Velocity core.Vec2
	Kind     string
}

// Mount is a turret. BodyID is a plain id and may refer to a body that no longer exists.
type Mount struct {
	ID       int
	BodyID   int
	Team     core.TeamID
	Position core.Vec2
	// Rotation follows the sprite convention: local up is (0,-1) rotated by Rotation.
	Rotation  float64
	Health    float64
	MaxHealth float64
	AP        int
	MaxAP     int
	Falling   bool

	radius       float64
	muzzleOffset float64
	apPerTurn    int
	armed        *Armed
}

// New creates a mount standing on the surface at the given outward angle.
func New(id, bodyID int, team core.TeamID, pos core.Vec2, surfaceAngle float64, cfg Config) *Mount {
	m := &Mount{
		ID:           id,
		BodyID:       bodyID,
		Team:         team,
		Position:     pos,
		Health:       cfg.MaxHealth,
		MaxHealth:    cfg.MaxHealth,
		AP:           min(cfg.StartAP, cfg.MaxAP),
		MaxAP:        cfg.MaxAP,
		radius:       cfg.Radius,
		muzzleOffset: cfg.MuzzleOffset,
		apPerTurn:    cfg.APPerTurn,
	}
	m.Settle(pos, surfaceAngle)
	return m
}

// Radius returns the collision radius.
func (m *Mount) Radius() float64 { return m.radius }

// Alive reports whether the mount still has health.
func (m *Mount) Alive() bool { return m.Health > 0 }

// UpAngle is the direction the mount considers "up", in radians.
func (m *Mount) UpAngle() float64 {
	return core.NormalizeAngle(m.Rotation - math.Pi/2)
}

// Up returns the unit up vector.
func (m *Mount) Up() core.Vec2 {
	return core.FromAngle(m.UpAngle(), 1)
}

// Muzzle returns the projectile spawn point.
func (m *Mount) Muzzle() core.Vec2 {
	return m.Position.Add(m.Up().Scale(m.muzzleOffset))
}

// Settle pins the mount to pos with up pointing along the outward surface normal.
func (m *Mount) Settle(pos core.Vec2, surfaceAngle float64) {
	m.Position = pos
	m.Rotation = core.NormalizeAngle(surfaceAngle + math.Pi/2)
	m.Falling = false
}

// Damage subtracts health and reports whether this hit destroyed the mount.
func (m *Mount) Damage(amount float64) bool {
	if !m.Alive() || amount <= 0 {
		return false
	}
	m.Health = math.Max(0, m.Health-amount)
	return !m.Alive()
}

// Accrue grants the per-turn action points, capped at MaxAP.
func (m *Mount) Accrue() {
	m.AP = min(m.MaxAP, m.AP+m.apPerTurn)
}

// Spend deducts cost action points.
func (m *Mount) Spend(cost int) error {
	if !m.Alive() {
		return ErrDestroyed
	}
	if cost > m.AP {
		return fmt.Errorf("mount %d needs %d, has %d: %w", m.ID, cost, m.AP, ErrInsufficientAP)
	}
	m.AP -= cost
	return nil
}

// Arm sets the pending shot, replacing any previous one.
func (m *Mount) Arm(velocity core.Vec2, kind string) error {
	if !m.Alive() {
		return ErrDestroyed
	}
	m.armed = &Armed{Velocity: velocity, Kind: kind}
	return nil
}

// Disarm clears the pending shot.
func (m *Mount) Disarm() { m.armed = nil }

// Armed returns the pending shot.
func (m *Mount) Armed() (Armed, bool) {
	if m.armed == nil {
		return Armed{}, false
	}
	return *m.armed, true
}
