package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameSeedSameSequence(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, -7, 1 << 40, 987654321} {
		a, b := New(seed), New(seed)
		for i := 0; i < 1000; i++ {
			require.Equal(t, a.Float(), b.Float(), "seed %d diverged at draw %d", seed, i)
		}
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint32() == b.Uint32() {
			same++
		}
	}
	assert.Less(t, same, 5)
}

func TestNegativeSeedsDiffer(t *testing.T) {
	pairs := [][2]int64{{-1, 0}, {-5, 4}, {-1000, 999}, {1 << 32, 0}, {-(1 << 40), (1 << 40) - 1}}
	for _, p := range pairs {
		a, b := New(p[0]), New(p[1])
		same := 0
		for i := 0; i < 8; i++ {
			if a.Float() == b.Float() {
				same++
			}
		}
		assert.Less(t, same, 2, "seeds %d and %d share a stream", p[0], p[1])
	}
}

func TestKnownSequence(t *testing.T) {
	// Reference values of Mulberry32 seeded with 0.
	r := New(0)
	assert.Equal(t, uint32(1144304738), r.Uint32())
	assert.Equal(t, uint32(1416247), r.Uint32())
}

func TestFloatRange(t *testing.T) {
	r := New(99)
	for i := 0; i < 10000; i++ {
		f := r.Float()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestIntRange(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
	}{
		{"small", 0, 3},
		{"negative", -10, -2},
		{"straddle", -5, 5},
		{"single", 7, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(int64(tt.min*31 + tt.max))
			seen := map[int]bool{}
			for i := 0; i < 5000; i++ {
				v := r.Int(tt.min, tt.max)
				require.GreaterOrEqual(t, v, tt.min)
				require.Less(t, v, tt.max)
				seen[v] = true
			}
			assert.Len(t, seen, tt.max-tt.min)
		})
	}
}

func TestIntEmptyRange(t *testing.T) {
	r := New(1)
	assert.Equal(t, 5, r.Int(5, 5))
	assert.Equal(t, 5, r.Int(5, 2))
}

func TestRange(t *testing.T) {
	r := New(3)
	for i := 0; i < 5000; i++ {
		v := r.Range(-1.5, 2.5)
		require.GreaterOrEqual(t, v, -1.5)
		require.Less(t, v, 2.5)
	}
	assert.Equal(t, 1.0, r.Range(1, 1))
}

func TestShuffleIsPermutation(t *testing.T) {
	s := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	Shuffle(New(11), s)
	seen := make(map[int]bool, len(s))
	for _, v := range s {
		seen[v] = true
	}
	assert.Len(t, seen, 10)

	a := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	Shuffle(New(11), a)
	Shuffle(New(11), b)
	assert.Equal(t, a, b)
}

func TestForkIsDeterministic(t *testing.T) {
	p1, p2 := New(5), New(5)
	c1, c2 := p1.Fork(), p2.Fork()
	for i := 0; i < 100; i++ {
		require.Equal(t, c1.Uint32(), c2.Uint32())
	}
	assert.Equal(t, p1.Calls(), p2.Calls())
	assert.Equal(t, uint64(1), p1.Calls())
}
