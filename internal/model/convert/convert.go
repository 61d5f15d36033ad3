package convert

import (
	"encoding/json"

	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/model"
	"github.com/OCAP2/artillery/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToVec converts a PostGIS geom.Point to a core.Vec2
func pointToVec(p geom.Point) core.Vec2 {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Vec2{}
	}
	return core.Vec2{X: coord.XY.X, Y: coord.XY.Y}
}

// MatchToCore converts a GORM Match to a core.MatchInfo.
func MatchToCore(m model.Match) core.MatchInfo {
	var cfg map[string]any
	if len(m.Config) > 0 {
		_ = json.Unmarshal(m.Config, &cfg)
	}
	return core.MatchInfo{
		ID:          m.ID,
		Name:        m.Name,
		Seed:        m.Seed,
		PlanetCount: m.PlanetCount,
		Teams:       m.Teams,
		StartTime:   m.StartTime,
		Config:      cfg,
	}
}

// TurnToCore converts a GORM Turn to a core.TurnEvent.
func TurnToCore(t model.Turn) core.TurnEvent {
	var alive map[core.TeamID]int
	if len(t.Alive) > 0 {
		_ = json.Unmarshal(t.Alive, &alive)
	}
	return core.TurnEvent{
		Turn:   t.Turn,
		Time:   t.Time,
		From:   t.From,
		To:     t.To,
		Mounts: t.Mounts,
		Alive:  alive,
	}
}

// ShotToCore converts a GORM Shot to a core.ShotEvent.
func ShotToCore(s model.Shot) core.ShotEvent {
	return core.ShotEvent{
		Turn:     s.Turn,
		Time:     s.Time,
		MountID:  s.MountID,
		Team:     core.TeamID(s.Team),
		Kind:     s.Kind,
		Origin:   pointToVec(s.Origin),
		Velocity: core.Vec2{X: s.VelocityX, Y: s.VelocityY},
		AI:       s.AI,
	}
}

// ImpactToCore converts a GORM Impact to a core.ImpactEvent.
func ImpactToCore(i model.Impact) core.ImpactEvent {
	e := core.ImpactEvent{
		Turn:     i.Turn,
		Time:     i.Time,
		BodyID:   i.BodyID,
		MountID:  i.MountID,
		Team:     core.TeamID(i.Team),
		Kind:     i.Kind,
		Position: pointToVec(i.Position),
		Radius:   i.Radius,
	}
	if _, ok := i.Regions.AsMultiPolygon(); ok {
		e.Terrain = geo.RegionSetFromGeometry(i.Regions).WKB()
	}
	return e
}

// MountEventToCore converts a GORM MountEvent to a core.MountEvent.
func MountEventToCore(m model.MountEvent) core.MountEvent {
	return core.MountEvent{
		Turn:     m.Turn,
		Time:     m.Time,
		MountID:  m.MountID,
		BodyID:   m.BodyID,
		Team:     core.TeamID(m.Team),
		Type:     core.MountEventType(m.Type),
		Position: pointToVec(m.Position),
		Health:   m.Health,
	}
}
