package geo

import (
	"math"
	"testing"

	"github.com/OCAP2/artillery/internal/rng"
	"github.com/OCAP2/artillery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triArea(tris []Triangle) float64 {
	var a float64
	for _, t := range tris {
		a += t.Area()
	}
	return a
}

func TestTriangulate(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		count  int
		area   float64
	}{
		{
			name:   "square",
			region: Region{Outer: square(0, 0, 1, 1)},
			count:  2,
			area:   1,
		},
		{
			name:   "concave L",
			region: Region{Outer: Ring{core.V(0, 0), core.V(10, 0), core.V(10, 2), core.V(2, 2), core.V(2, 10), core.V(0, 10)}},
			count:  4,
			area:   36,
		},
		{
			name:   "clockwise input",
			region: Region{Outer: square(0, 0, 3, 3).Reversed()},
			count:  2,
			area:   9,
		},
		{
			name:   "one hole",
			region: Region{Outer: square(0, 0, 10, 10), Holes: []Ring{square(4, 4, 6, 6)}},
			count:  8,
			area:   96,
		},
		{
			name:   "two holes",
			region: Region{Outer: square(0, 0, 10, 10), Holes: []Ring{square(2, 2, 3, 3), square(6, 6, 8, 8)}},
			count:  12,
			area:   95.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tris := Triangulate(tt.region)
			assert.Len(t, tris, tt.count)
			assert.InDelta(t, tt.area, triArea(tris), 1e-9)
			for _, tri := range tris {
				assert.Greater(t, orient(tri[0], tri[1], tri[2]), 0.0)
			}
		})
	}
}

func TestTriangulate_RegularPolygon(t *testing.T) {
	ring := RegularPolygon(core.Vec2{}, 100, 64)
	tris := Triangulate(Region{Outer: ring})

	assert.Len(t, tris, 62)
	assert.InDelta(t, ring.Area(), triArea(tris), 1e-6)
}

func TestTriangulate_CarvedSet(t *testing.T) {
	set := circleSet(100, 64)
	carved, err := set.Difference(RegularPolygon(core.V(100, 0), 30, 24))
	require.NoError(t, err)

	tris := carved.Triangulate()
	require.NotEmpty(t, tris)
	assert.InDelta(t, carved.Area(), triArea(tris), 1e-3)
}

func TestTriangulate_NoisyHoles(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		r := rng.New(seed)
		region := Region{
			Outer: NoisyPolygon(core.Vec2{}, 100, 90, 0.15, r),
			Holes: []Ring{
				NoisyPolygon(core.V(r.Range(-10, 10), r.Range(-10, 10)), 15, 16, 0.25, r),
				NoisyPolygon(core.V(r.Range(55, 60), 0), 8, 12, 0.25, r),
			},
		}

		tris := Triangulate(region)
		require.InDelta(t, region.Area(), triArea(tris), 1e-6*region.Area(), "seed %d", seed)
		for _, tri := range tris {
			if tri.Area() < 1e-3 {
				continue
			}
			assert.True(t, region.Contains(tri.Centroid()), "seed %d: triangle %v outside region", seed, tri)
		}
	}
}

func TestTriangulate_Degenerate(t *testing.T) {
	assert.Nil(t, Triangulate(Region{Outer: Ring{core.V(0, 0), core.V(1, 0)}}))
	assert.Empty(t, Triangulate(Region{Outer: Ring{core.V(0, 0), core.V(1, 0), core.V(2, 0)}}))
}

func TestTriangle_ClosestPoint(t *testing.T) {
	tri := Triangle{core.V(0, 0), core.V(10, 0), core.V(0, 10)}

	tests := []struct {
		name string
		p    core.Vec2
		want core.Vec2
	}{
		{"inside", core.V(1, 1), core.V(1, 1)},
		{"vertex a", core.V(-5, -5), core.V(0, 0)},
		{"vertex b", core.V(15, -1), core.V(10, 0)},
		{"edge ab", core.V(5, -3), core.V(5, 0)},
		{"edge ac", core.V(-2, 5), core.V(0, 5)},
		{"hypotenuse", core.V(10, 10), core.V(5, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tri.ClosestPoint(tt.p)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestTriangle_ContainsAndCentroid(t *testing.T) {
	tri := Triangle{core.V(0, 0), core.V(3, 0), core.V(0, 3)}

	assert.True(t, tri.Contains(core.V(1, 1)))
	assert.True(t, tri.Contains(core.V(0, 0)))
	assert.False(t, tri.Contains(core.V(3, 3)))
	c := tri.Centroid()
	assert.InDelta(t, 1.0, c.X, 1e-12)
	assert.InDelta(t, 1.0, c.Y, 1e-12)
	assert.InDelta(t, 4.5, tri.Area(), 1e-12)
}

func TestRaySegment(t *testing.T) {
	d, ok := RaySegment(core.Vec2{}, core.V(1, 0), core.V(5, -1), core.V(5, 1))
	require.True(t, ok)
	assert.InDelta(t, 5.0, d, 1e-12)

	_, ok = RaySegment(core.Vec2{}, core.V(-1, 0), core.V(5, -1), core.V(5, 1))
	assert.False(t, ok)

	_, ok = RaySegment(core.Vec2{}, core.V(1, 0), core.V(0, 1), core.V(5, 1))
	assert.False(t, ok)

	_, ok = RaySegment(core.Vec2{}, core.FromAngle(math.Pi/2, 1), core.V(5, -1), core.V(5, 1))
	assert.False(t, ok)
}

func TestSegmentsIntersect(t *testing.T) {
	assert.True(t, SegmentsIntersect(core.V(0, 0), core.V(2, 2), core.V(0, 2), core.V(2, 0)))
	assert.False(t, SegmentsIntersect(core.V(0, 0), core.V(1, 1), core.V(1, 1), core.V(2, 0)))
	assert.False(t, SegmentsIntersect(core.V(0, 0), core.V(1, 0), core.V(0, 1), core.V(1, 1)))
}
