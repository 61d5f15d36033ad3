package geo

import (
	"testing"

	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64) Ring {
	return Ring{core.V(x0, y0), core.V(x1, y0), core.V(x1, y1), core.V(x0, y1)}
}

func circleSet(radius float64, segments int) RegionSet {
	return NewRegionSet(Region{Outer: RegularPolygon(core.Vec2{}, radius, segments)})
}

func TestNewRegionSet_NormalizesAndDropsDegenerate(t *testing.T) {
	set := NewRegionSet(
		Region{Outer: square(0, 0, 10, 10).Reversed(), Holes: []Ring{square(4, 4, 6, 6)}},
		Region{Outer: Ring{core.V(0, 0), core.V(1, 1)}},
		Region{Outer: Ring{core.V(0, 0), core.V(1, 0), core.V(2, 0)}},
	)

	require.Equal(t, 1, set.Len())
	r := set.Region(0)
	assert.Greater(t, r.Outer.SignedArea(), 0.0)
	require.Len(t, r.Holes, 1)
	assert.Less(t, r.Holes[0].SignedArea(), 0.0)
	assert.InDelta(t, 96.0, set.Area(), 1e-9)
}

func TestRegionSet_RegionsIsACopy(t *testing.T) {
	set := NewRegionSet(Region{Outer: square(0, 0, 10, 10)})
	regions := set.Regions()
	regions[0].Outer[0] = core.V(-50, -50)

	assert.Equal(t, core.V(0, 0), set.Region(0).Outer[0])
}

func TestRegionSet_Contains(t *testing.T) {
	set := NewRegionSet(Region{Outer: square(0, 0, 10, 10), Holes: []Ring{square(4, 4, 6, 6)}})

	assert.True(t, set.Contains(core.V(1, 1)))
	assert.False(t, set.Contains(core.V(5, 5)))
	assert.False(t, set.Contains(core.V(11, 5)))
}

func TestDifference_RemovesArea(t *testing.T) {
	set := circleSet(100, 64)
	before := set.Area()

	after, err := set.Difference(RegularPolygon(core.V(100, 0), 20, 24))
	require.NoError(t, err)

	assert.Less(t, after.Area(), before)
	assert.False(t, after.Contains(core.V(95, 0)))
	assert.True(t, after.Contains(core.V(50, 0)))
	// Original set is untouched.
	assert.InDelta(t, before, set.Area(), 1e-9)
}

func TestDifference_OutsideIsNoop(t *testing.T) {
	set := circleSet(100, 64)

	after, err := set.Difference(RegularPolygon(core.V(500, 500), 20, 24))
	require.NoError(t, err)

	assert.Equal(t, 1, after.Len())
	assert.InDelta(t, set.Area(), after.Area(), 1e-6)
}

func TestDifference_SplitsRegion(t *testing.T) {
	set := NewRegionSet(Region{Outer: square(0, 0, 100, 10)})

	after, err := set.Difference(RegularPolygon(core.V(50, 5), 20, 32))
	require.NoError(t, err)

	assert.Equal(t, 2, after.Len())
}

func TestDifference_Degenerate(t *testing.T) {
	set := circleSet(100, 32)

	after, err := set.Difference(Ring{core.V(0, 0), core.V(1, 1)})
	require.ErrorIs(t, err, ErrDegenerate)
	assert.Equal(t, set.Hash(), after.Hash())
}

func TestDifference_EmptySet(t *testing.T) {
	after, err := RegionSet{}.Difference(square(0, 0, 1, 1))
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
}

func TestUnion_AddsArea(t *testing.T) {
	set := circleSet(100, 64)

	after, err := set.Union(RegularPolygon(core.V(100, 0), 20, 24))
	require.NoError(t, err)

	assert.Equal(t, 1, after.Len())
	assert.Greater(t, after.Area(), set.Area())
	assert.True(t, after.Contains(core.V(110, 0)))
}

func TestUnion_IntoEmpty(t *testing.T) {
	after, err := RegionSet{}.Union(square(0, 0, 2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, after.Area(), 1e-9)
}

func TestWKBRoundTrip(t *testing.T) {
	set := NewRegionSet(
		Region{Outer: square(0, 0, 10, 10), Holes: []Ring{square(4, 4, 6, 6)}},
		Region{Outer: square(20, 0, 30, 10)},
	)

	decoded, err := RegionSetFromWKB(set.WKB())
	require.NoError(t, err)

	assert.Equal(t, set.Hash(), decoded.Hash())
	require.Equal(t, 2, decoded.Len())
	assert.Len(t, decoded.Region(0).Holes, 1)
}

func TestRegionSetFromWKB_Invalid(t *testing.T) {
	_, err := RegionSetFromWKB([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestHash_DiffersOnChange(t *testing.T) {
	a := NewRegionSet(Region{Outer: square(0, 0, 10, 10)})
	b := NewRegionSet(Region{Outer: square(0, 0, 10, 10.5)})

	assert.Equal(t, a.Hash(), NewRegionSet(Region{Outer: square(0, 0, 10, 10)}).Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestMaxRadius(t *testing.T) {
	set := circleSet(75, 16)
	assert.InDelta(t, 75.0, set.MaxRadius(core.Vec2{}), 1e-9)
}
