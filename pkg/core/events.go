// pkg/core/events.go
package core

import (
	"time"
)

// MatchInfo identifies a recorded match. Seed plus Config fully reproduce its initial terrain.
type MatchInfo struct {
	ID          uint
	Name        string
	Seed        int64
	PlanetCount int
	Teams       int
	StartTime   time.Time
	Config      map[string]any
}

// TurnEvent is recorded at every phase transition.
type TurnEvent struct {
	Turn   uint
	Time   time.Time
	From   string
	To     string
	Mounts int
	Alive  map[TeamID]int
}

// ShotEvent represents a mount firing a projectile.
type ShotEvent struct {
	Turn     uint
	Time     time.Time
	MountID  int
	Team     TeamID
	Kind     string
	Origin   Vec2
	Velocity Vec2
	AI       bool
}

// ImpactEvent represents a projectile resolving against terrain, a mount or another projectile.
// Terrain holds the struck body's region set after the impact, holes included, as WKB in
// body-local coordinates. It is nil when no terrain body was involved.
type ImpactEvent struct {
	Turn     uint
	Time     time.Time
	BodyID   int
	MountID  int
	Team     TeamID
	Kind     string
	Position Vec2
	Radius   float64
	Terrain  []byte
}

// MountEventType enumerates mount lifecycle changes.
type MountEventType string

const (
	MountSpawned   MountEventType = "spawned"
	MountDestroyed MountEventType = "destroyed"
	MountFell      MountEventType = "fell"
	MountLanded    MountEventType = "landed"
)

// MountEvent is a mount lifecycle change.
type MountEvent struct {
	Turn     uint
	Time     time.Time
	MountID  int
	BodyID   int
	Team     TeamID
	Type     MountEventType
	Position Vec2
	Health   float64
}
