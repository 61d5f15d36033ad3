package streaming

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_Frame(t *testing.T) {
	frame := core.Frame{
		Turn:   3,
		Phase:  "execution",
		Bodies: []core.BodyState{{X: 1, Y: 2, Rotation: 0.5, Kind: "terrain"}},
		Terrain: []core.TerrainState{
			{BodyID: 1, Regions: [][]float64{{0, 0, 10, 0, 10, 10}}},
		},
	}

	data, err := Encode(TypeFrame, &frame)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeFrame, env.Type)

	var got core.Frame
	require.NoError(t, env.Unmarshal(&got))
	assert.Equal(t, frame, got)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestWriterReader_Stream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, w.Init())
	require.NoError(t, w.StartMatch(&core.MatchInfo{ID: 4, Name: "live", Seed: 77}))
	require.NoError(t, w.WriteFrame(core.Frame{Turn: 1, Phase: "planning"}))
	require.NoError(t, w.RecordTurn(&core.TurnEvent{Turn: 1, Time: at, From: "planning", To: "execution", Alive: map[core.TeamID]int{1: 2}}))
	require.NoError(t, w.RecordShot(&core.ShotEvent{Turn: 1, Time: at, MountID: 2, Velocity: core.V(1, -1)}))
	require.NoError(t, w.RecordImpact(&core.ImpactEvent{Turn: 1, Time: at, Radius: 20}))
	require.NoError(t, w.RecordMountEvent(&core.MountEvent{Type: core.MountDestroyed}))
	require.NoError(t, w.EndMatch())
	require.NoError(t, w.Close())

	r := NewReader(&buf)
	var types []string
	var envs []Envelope
	for {
		env, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		types = append(types, env.Type)
		envs = append(envs, env)
	}
	assert.Equal(t, []string{
		TypeStartMatch, TypeFrame, TypeTurn, TypeShot, TypeImpact, TypeMountEvent, TypeEndMatch, TypeCloseStream,
	}, types)

	var info core.MatchInfo
	require.NoError(t, envs[0].Unmarshal(&info))
	assert.Equal(t, uint(4), info.ID)
	assert.Equal(t, int64(77), info.Seed)

	var turn core.TurnEvent
	require.NoError(t, envs[2].Unmarshal(&turn))
	assert.Equal(t, map[core.TeamID]int{1: 2}, turn.Alive)
	assert.True(t, at.Equal(turn.Time))

	var shot core.ShotEvent
	require.NoError(t, envs[3].Unmarshal(&shot))
	assert.Equal(t, core.V(1, -1), shot.Velocity)
}
