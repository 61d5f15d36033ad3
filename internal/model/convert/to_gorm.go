// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/model"
	"github.com/OCAP2/artillery/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// vecToPoint converts a core.Vec2 to a PostGIS geom.Point
func vecToPoint(v core.Vec2) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: v.X, Y: v.Y}})
}

// terrainGeometry decodes a WKB region set for the geometry column. Undecodable input yields
// the zero geometry.
func terrainGeometry(wkb []byte) geom.Geometry {
	rs, err := geo.RegionSetFromWKB(wkb)
	if err != nil {
		return geom.Geometry{}
	}
	return rs.Geometry()
}

// toJSON marshals v for a jsonb column, falling back to the given empty literal.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.MatchInfo to a GORM model.Match.
func CoreToMatch(m core.MatchInfo) model.Match {
	out := model.Match{
		Name:        m.Name,
		Seed:        m.Seed,
		PlanetCount: m.PlanetCount,
		Teams:       m.Teams,
		StartTime:   m.StartTime,
		Config:      toJSON(m.Config, "{}"),
	}
	out.ID = m.ID
	return out
}

// CoreToTurn converts a core.TurnEvent to a GORM model.Turn.
func CoreToTurn(e core.TurnEvent) model.Turn {
	return model.Turn{
		Turn:   e.Turn,
		Time:   e.Time,
		From:   e.From,
		To:     e.To,
		Mounts: e.Mounts,
		Alive:  toJSON(e.Alive, "{}"),
	}
}

// CoreToShot converts a core.ShotEvent to a GORM model.Shot.
func CoreToShot(e core.ShotEvent) model.Shot {
	return model.Shot{
		Turn:      e.Turn,
		Time:      e.Time,
		MountID:   e.MountID,
		Team:      int(e.Team),
		Kind:      e.Kind,
		Origin:    vecToPoint(e.Origin),
		VelocityX: e.Velocity.X,
		VelocityY: e.Velocity.Y,
		AI:        e.AI,
	}
}

// CoreToImpact converts a core.ImpactEvent to a GORM model.Impact.
func CoreToImpact(e core.ImpactEvent) model.Impact {
	out := model.Impact{
		Turn:     e.Turn,
		Time:     e.Time,
		BodyID:   e.BodyID,
		MountID:  e.MountID,
		Team:     int(e.Team),
		Kind:     e.Kind,
		Position: vecToPoint(e.Position),
		Radius:   e.Radius,
	}
	if len(e.Terrain) > 0 {
		out.Regions = terrainGeometry(e.Terrain)
	}
	return out
}

// CoreToMountEvent converts a core.MountEvent to a GORM model.MountEvent.
func CoreToMountEvent(e core.MountEvent) model.MountEvent {
	return model.MountEvent{
		Turn:     e.Turn,
		Time:     e.Time,
		MountID:  e.MountID,
		BodyID:   e.BodyID,
		Team:     int(e.Team),
		Type:     string(e.Type),
		Position: vecToPoint(e.Position),
		Health:   e.Health,
	}
}
