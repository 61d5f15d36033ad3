package convert

import (
	"testing"
	"time"

	"github.com/OCAP2/artillery/internal/geo"
	"github.com/OCAP2/artillery/internal/model"
	"github.com/OCAP2/artillery/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func holed() geo.RegionSet {
	return geo.NewRegionSet(geo.Region{
		Outer: geo.Ring{core.V(0, 0), core.V(10, 0), core.V(10, 10), core.V(0, 10)},
		Holes: []geo.Ring{{core.V(4, 4), core.V(6, 4), core.V(6, 6), core.V(4, 6)}},
	})
}

func TestVecToPoint(t *testing.T) {
	pt := vecToPoint(core.V(100.5, -200.25))

	coord, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 100.5, coord.XY.X)
	assert.Equal(t, -200.25, coord.XY.Y)
	assert.Equal(t, core.V(100.5, -200.25), pointToVec(pt))
}

func TestPointToVec_Empty(t *testing.T) {
	assert.Equal(t, core.Vec2{}, pointToVec(geom.Point{}))
}

func TestTerrainGeometry(t *testing.T) {
	mp, ok := terrainGeometry(holed().WKB()).AsMultiPolygon()
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
	assert.InDelta(t, 96.0, mp.Area(), 1e-9)

	assert.True(t, terrainGeometry([]byte{0x01}).IsEmpty())
}

func TestMatchRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	info := core.MatchInfo{
		ID:          3,
		Name:        "duel",
		Seed:        42,
		PlanetCount: 4,
		Teams:       2,
		StartTime:   start,
		Config:      map[string]any{"planets": 4, "terrainHashes": []string{"ab"}},
	}

	m := CoreToMatch(info)
	assert.Equal(t, uint(3), m.ID)
	assert.JSONEq(t, `{"planets":4,"terrainHashes":["ab"]}`, string(m.Config))

	back := MatchToCore(m)
	assert.Equal(t, info.Name, back.Name)
	assert.Equal(t, info.Seed, back.Seed)
	assert.Equal(t, start, back.StartTime)
	assert.Equal(t, float64(4), back.Config["planets"])
}

func TestCoreToMatch_NilConfig(t *testing.T) {
	m := CoreToMatch(core.MatchInfo{Name: "empty"})
	assert.Equal(t, datatypes.JSON("{}"), m.Config)
}

func TestTurnRoundTrip(t *testing.T) {
	e := core.TurnEvent{
		Turn:   2,
		From:   "planning",
		To:     "execution",
		Mounts: 3,
		Alive:  map[core.TeamID]int{1: 2, 2: 1},
	}
	back := TurnToCore(CoreToTurn(e))
	assert.Equal(t, e, back)
}

func TestShotRoundTrip(t *testing.T) {
	e := core.ShotEvent{
		Turn:     1,
		MountID:  5,
		Team:     2,
		Kind:     "heavy",
		Origin:   core.V(10, 20),
		Velocity: core.V(-3, 4),
		AI:       true,
	}
	back := ShotToCore(CoreToShot(e))
	assert.Equal(t, e, back)
}

func TestImpactRoundTrip(t *testing.T) {
	e := core.ImpactEvent{
		Turn:     4,
		BodyID:   2,
		MountID:  0,
		Team:     1,
		Kind:     "standard",
		Position: core.V(5, 5),
		Radius:   25,
		Terrain:  holed().WKB(),
	}
	g := CoreToImpact(e)
	assert.False(t, g.Regions.IsEmpty())

	back := ImpactToCore(g)
	assert.Equal(t, e.Position, back.Position)
	assert.Equal(t, e.Radius, back.Radius)
	rs, err := geo.RegionSetFromWKB(back.Terrain)
	require.NoError(t, err)
	assert.Equal(t, holed().Hash(), rs.Hash())
}

func TestImpactRoundTrip_DestroyedBody(t *testing.T) {
	e := core.ImpactEvent{BodyID: 1, Kind: "heavy", Terrain: geo.RegionSet{}.WKB()}

	back := ImpactToCore(CoreToImpact(e))
	require.NotNil(t, back.Terrain)
	rs, err := geo.RegionSetFromWKB(back.Terrain)
	require.NoError(t, err)
	assert.True(t, rs.IsEmpty())
}

func TestImpactToCore_NoRegions(t *testing.T) {
	back := ImpactToCore(model.Impact{Kind: "defender"})
	assert.Nil(t, back.Terrain)
}

func TestMountEventRoundTrip(t *testing.T) {
	e := core.MountEvent{
		Turn:     7,
		MountID:  9,
		BodyID:   1,
		Team:     1,
		Type:     core.MountFell,
		Position: core.V(-1, 2),
		Health:   40,
	}
	g := CoreToMountEvent(e)
	assert.Equal(t, "fell", g.Type)
	assert.Equal(t, e, MountEventToCore(g))
}
