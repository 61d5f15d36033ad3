package ballistics

import (
	"testing"

	"github.com/OCAP2/artillery/internal/gravity"
	"github.com/OCAP2/artillery/internal/mount"
	"github.com/OCAP2/artillery/internal/physics"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSim(t *testing.T, pcfg physics.Config) (*physics.Engine, *Simulator) {
	t.Helper()
	engine := physics.NewEngine(pcfg)
	engine.Init()
	return engine, NewSimulator(engine, gravity.DefaultConfig(), DefaultConfig())
}

func planet(id int, center core.Vec2, radius float64, teams ...core.TeamID) *terrain.Body {
	cfg := terrain.DefaultConfig()
	cfg.MaxCraters, cfg.MaxMountains = 0, 0
	b := terrain.New(id, center, int64(id), radius, cfg)
	for i, team := range teams {
		b.Attach(mount.New(100*id+i, id, team, center, 0, mount.DefaultConfig()))
	}
	return b
}

func TestEvaluate_DirectHit(t *testing.T) {
	_, sim := newSim(t, physics.DefaultConfig())

	res, err := sim.Simulate(nil, Shot{
		Velocity:     core.V(100, 0),
		Team:         1,
		Target:       core.V(200, 0),
		TargetRadius: 10,
	})
	require.NoError(t, err)

	assert.True(t, res.Hit)
	assert.Equal(t, 0.0, res.ClosestDist)
	assert.InDelta(t, 113, res.Steps, 1)
}

func TestEvaluate_MissRecordsClosestDistance(t *testing.T) {
	_, sim := newSim(t, physics.DefaultConfig())

	res, err := sim.Simulate(nil, Shot{
		Velocity:     core.V(0, 100),
		Team:         1,
		Target:       core.V(200, 0),
		TargetRadius: 10,
	})
	require.NoError(t, err)

	assert.False(t, res.Hit)
	assert.False(t, res.HitFriendly)
	assert.InDelta(t, 200.0, res.ClosestDist, 0.1)
	assert.Equal(t, DefaultConfig().MaxSteps, res.Steps)
}

func TestEvaluate_Obstacle(t *testing.T) {
	tests := []struct {
		name         string
		teams        []core.TeamID
		targetBody   int
		wantFriendly bool
		wantObstacle int
	}{
		{"friendly planet", []core.TeamID{1}, 0, true, 5},
		{"enemy planet", []core.TeamID{2}, 0, false, 5},
		{"contested planet", []core.TeamID{1, 2}, 0, false, 5},
		{"empty planet", nil, 0, false, 5},
		{"target planet", []core.TeamID{1}, 5, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, sim := newSim(t, physics.DefaultConfig())
			body := planet(5, core.V(100, 0), 30, tt.teams...)

			res, err := sim.Simulate([]*terrain.Body{body}, Shot{
				Velocity:     core.V(150, 0),
				Team:         1,
				Target:       core.V(200, 0),
				TargetRadius: 10,
				TargetBody:   tt.targetBody,
			})
			require.NoError(t, err)

			assert.False(t, res.Hit)
			assert.Equal(t, tt.wantFriendly, res.HitFriendly)
			assert.Equal(t, tt.wantObstacle, res.Obstacle)
			assert.Less(t, res.Steps, 60)
			assert.Greater(t, res.ClosestDist, 100.0)
			assert.Equal(t, 0, engine.ActiveShadows())
		})
	}
}

func TestEvaluate_OutOfBounds(t *testing.T) {
	cfg := physics.DefaultConfig()
	cfg.Bounds = 300
	_, sim := newSim(t, cfg)

	res, err := sim.Simulate(nil, Shot{Velocity: core.V(0, -600), Target: core.V(200, 0), TargetRadius: 5})
	require.NoError(t, err)

	assert.True(t, res.OutOfBounds)
	assert.False(t, res.Hit)
	assert.InDelta(t, 31, res.Steps, 1)
}

func TestNewBatch_NotInitialized(t *testing.T) {
	sim := NewSimulator(physics.NewEngine(physics.DefaultConfig()), gravity.DefaultConfig(), DefaultConfig())

	_, err := sim.NewBatch(nil)
	require.ErrorIs(t, err, physics.ErrNotInitialized)
}

func TestBatch_Released(t *testing.T) {
	engine, sim := newSim(t, physics.DefaultConfig())
	batch, err := sim.NewBatch([]*terrain.Body{planet(1, core.V(0, 500), 40)})
	require.NoError(t, err)
	require.Equal(t, 1, engine.ActiveShadows())

	batch.Release()
	assert.Equal(t, 0, engine.ActiveShadows())

	_, err = batch.Evaluate(Shot{})
	require.ErrorIs(t, err, ErrReleased)
}

func TestBatch_ReuseIsDeterministic(t *testing.T) {
	_, sim := newSim(t, physics.DefaultConfig())
	batch, err := sim.NewBatch([]*terrain.Body{planet(1, core.V(100, 250), 60), planet(2, core.V(-200, -100), 40)})
	require.NoError(t, err)
	defer batch.Release()

	shot := Shot{Velocity: core.V(120, 40), Team: 1, Target: core.V(400, 0), TargetRadius: 10}
	first, err := batch.Evaluate(shot)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := batch.Evaluate(shot)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 0, batch.world.Len())
}

func TestTrace_GravityBendsPath(t *testing.T) {
	_, sim := newSim(t, physics.DefaultConfig())
	batch, err := sim.NewBatch([]*terrain.Body{planet(1, core.V(0, 300), 50)})
	require.NoError(t, err)
	defer batch.Release()

	path, _, err := batch.Trace(Shot{Velocity: core.V(100, 0), Target: core.V(-1000, -1000)}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	assert.Greater(t, path[5].Y, 0.0)
	assert.Greater(t, path[len(path)-1].Y, path[5].Y)
}

func TestStepBody_LiveMatchesShadow(t *testing.T) {
	engine, sim := newSim(t, physics.DefaultConfig())
	bodies := []*terrain.Body{planet(1, core.V(50, 400), 80)}
	shot := Shot{Origin: core.V(0, 0), Velocity: core.V(80, -30), Target: core.V(-5000, 0)}

	batch, err := sim.NewBatch(bodies)
	require.NoError(t, err)
	path, _, err := batch.Trace(shot, 1)
	batch.Release()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(path), 100)

	live, err := engine.Live()
	require.NoError(t, err)
	field := gravity.NewField(sim.Gravity(), gravity.Sources(bodies))
	h := live.AddCircle(physics.ProjectileTag(1), shot.Origin, shot.Velocity, 3, 1, false)
	for i := 0; i < 100; i++ {
		StepBody(live, h, field)
		live.Step(sim.TimeStep())
	}

	assert.Equal(t, path[99], live.Position(h))
}
