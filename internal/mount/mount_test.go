package mount

import (
	"math"
	"testing"

	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FacesOutward(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
	}{
		{"east", 0},
		{"north", math.Pi / 2},
		{"west", math.Pi},
		{"south", -math.Pi / 2},
		{"diagonal", 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(1, 2, 1, core.FromAngle(tt.angle, 100), tt.angle, DefaultConfig())
			up := m.Up()
			want := core.FromAngle(tt.angle, 1)
			assert.InDelta(t, want.X, up.X, 1e-9)
			assert.InDelta(t, want.Y, up.Y, 1e-9)
			assert.False(t, m.Falling)
		})
	}
}

func TestMuzzle(t *testing.T) {
	cfg := DefaultConfig()
	m := New(1, 0, 1, core.V(100, 0), 0, cfg)

	muzzle := m.Muzzle()
	assert.InDelta(t, 100+cfg.MuzzleOffset, muzzle.X, 1e-9)
	assert.InDelta(t, 0.0, muzzle.Y, 1e-9)
}

func TestDamage(t *testing.T) {
	m := New(1, 0, 1, core.Vec2{}, 0, DefaultConfig())

	assert.False(t, m.Damage(40))
	assert.InDelta(t, 60.0, m.Health, 1e-9)
	assert.False(t, m.Damage(-5))
	assert.True(t, m.Damage(100))
	assert.Equal(t, 0.0, m.Health)
	assert.False(t, m.Alive())
	// Already destroyed: no second destruction report.
	assert.False(t, m.Damage(10))
}

func TestActionPoints(t *testing.T) {
	cfg := DefaultConfig()
	m := New(1, 0, 1, core.Vec2{}, 0, cfg)
	require.Equal(t, cfg.StartAP, m.AP)

	require.NoError(t, m.Spend(2))
	assert.Equal(t, 0, m.AP)

	err := m.Spend(1)
	require.ErrorIs(t, err, ErrInsufficientAP)

	for i := 0; i < 10; i++ {
		m.Accrue()
	}
	assert.Equal(t, cfg.MaxAP, m.AP)
}

func TestArmDisarm(t *testing.T) {
	m := New(1, 0, 1, core.Vec2{}, 0, DefaultConfig())

	_, ok := m.Armed()
	assert.False(t, ok)

	require.NoError(t, m.Arm(core.V(10, 5), "standard"))
	armed, ok := m.Armed()
	require.True(t, ok)
	assert.Equal(t, core.V(10, 5), armed.Velocity)
	assert.Equal(t, "standard", armed.Kind)

	m.Disarm()
	_, ok = m.Armed()
	assert.False(t, ok)
}

func TestDestroyedMountCannotAct(t *testing.T) {
	m := New(1, 0, 1, core.Vec2{}, 0, DefaultConfig())
	m.Damage(1000)

	require.ErrorIs(t, m.Arm(core.V(1, 0), "standard"), ErrDestroyed)
	require.ErrorIs(t, m.Spend(0), ErrDestroyed)
}

func TestSettleAfterFalling(t *testing.T) {
	m := New(1, 0, 1, core.V(0, -100), -math.Pi/2, DefaultConfig())
	m.Falling = true
	m.Rotation = 2.0

	m.Settle(core.V(90, 0), 0)
	assert.False(t, m.Falling)
	assert.InDelta(t, 0.0, m.UpAngle(), 1e-9)
	assert.Equal(t, core.V(90, 0), m.Position)
}
