package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/artillery/internal/match"
	"github.com/OCAP2/artillery/internal/storage"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idRecorder struct{ storage.Nop }

func (idRecorder) StartMatch(info *core.MatchInfo) error {
	info.ID = 7
	return nil
}

func newTestMatch(t *testing.T) *match.Match {
	t.Helper()
	cfg := match.DefaultConfig()
	cfg.Seed = 42
	cfg.AITeams = nil
	m, err := match.New(cfg, match.Dependencies{Recorder: idRecorder{}})
	require.NoError(t, err)
	return m
}

func TestBuild(t *testing.T) {
	m := newTestMatch(t)
	id := m.Mounts()[0].ID
	require.NoError(t, m.Arm(id, core.Vec2{X: 1}, "standard"))

	st := Build(m, 3)

	assert.Equal(t, uint(7), st.MatchID)
	assert.Equal(t, "planning", st.Phase)
	assert.Equal(t, 3, st.Pending)
	assert.Equal(t, m.Config().Planets, st.Bodies)
	assert.False(t, st.Over)
	require.Len(t, st.Mounts, len(m.Mounts()))
	assert.Equal(t, "standard", st.Mounts[0].Armed)
	assert.Equal(t, 2, st.Mounts[0].AP)

	sample := st.Sample()
	assert.Equal(t, uint16(1), sample.Armed)
	assert.Equal(t, uint16(len(st.Mounts)), sample.Mounts)
	assert.Equal(t, uint(7), sample.MatchID)
}

func TestStatus_Lines(t *testing.T) {
	st := Status{
		MatchID: 2,
		Turn:    4,
		Phase:   "execution",
		Over:    true,
		Winner:  1,
		Mounts:  []MountStatus{{ID: 3, Team: 1, Body: 2, AP: 1, Health: 55, Armed: "heavy", Fall: true}},
	}
	lines := st.Lines()
	assert.Contains(t, lines, "TURN: 4 (execution)")
	assert.Contains(t, lines, "OVER: winner 1")
	assert.Equal(t, "  3 team=1 body=2 ap=1 health=55 armed=heavy falling", lines[len(lines)-1])
}

func TestService_RefreshAndLatest(t *testing.T) {
	m := newTestMatch(t)
	s := NewService(Dependencies{Match: m, Pending: func() int { return 5 }})

	assert.True(t, s.Latest().Time.IsZero())
	st := s.Refresh()
	assert.Equal(t, 5, st.Pending)
	assert.Equal(t, st, s.Latest())

	data, err := s.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"matchId":7`)
}

func TestService_WritesStatusFile(t *testing.T) {
	m := newTestMatch(t)
	path := filepath.Join(t.TempDir(), "status.txt")
	s := NewService(Dependencies{Match: m, StatusFile: path, Interval: 10 * time.Millisecond})
	s.Refresh()

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.HasPrefix(string(data), "MATCH: 7\n")
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestService_WritesJSONStatusFile(t *testing.T) {
	m := newTestMatch(t)
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{Match: m, StatusFile: path, Interval: 10 * time.Millisecond})
	s.Refresh()

	require.NoError(t, s.Start())
	defer s.Stop()
	var got Status
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && json.Unmarshal(data, &got) == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint(7), got.MatchID)
	assert.Equal(t, s.Latest().Phase, got.Phase)
}

func TestService_StartTwice(t *testing.T) {
	s := NewService(Dependencies{Match: newTestMatch(t), Interval: time.Hour})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	s.Stop()
	assert.False(t, s.IsRunning())
}
