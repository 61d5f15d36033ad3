// Package rng provides a seeded, platform-independent pseudo-random stream.
//
// The generator is Mulberry32: a 32-bit counter advanced by 0x6D2B79F5 and mixed with
// xor-shift/multiply rounds. Floats are derived by dividing the 32-bit output by 2^32, so two
// streams built from the same seed are bit-identical on every platform.
package rng

import "math"

const (
	increment = 0x6D2B79F5
	twoPow32  = 4294967296.0
)

// Rand is an independent deterministic stream. The zero value is a valid stream seeded with 0.
type Rand struct {
	state uint32
	calls uint64
}

// New creates a stream from seed. Seeds in [0, 2^32) are used as the state directly; any other
// seed is hashed with splitmix64 first.
func New(seed int64) *Rand {
	if seed >= 0 && seed <= math.MaxUint32 {
		return &Rand{state: uint32(seed)}
	}
	return &Rand{state: uint32(splitmix64(uint64(seed)) >> 32)}
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// Uint32 returns the next raw 32-bit output.
func (r *Rand) Uint32() uint32 {
	r.calls++
	r.state += increment
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float returns a value in [0, 1).
func (r *Rand) Float() float64 {
	return float64(r.Uint32()) / twoPow32
}

// Int returns an integer in [min, max). It returns min when the range is empty.
func (r *Rand) Int(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(math.Floor(r.Float()*float64(max-min)))
}

// Range returns a value in [min, max). It returns min when the range is empty.
func (r *Rand) Range(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float()*(max-min)
}

// Calls returns how many raw outputs have been drawn from the stream.
func (r *Rand) Calls() uint64 {
	return r.calls
}

// Fork derives a child stream. The parent advances by exactly one draw.
func (r *Rand) Fork() *Rand {
	return New(int64(r.Uint32()))
}

// Shuffle permutes s in place with a Fisher–Yates pass driven by r.
func Shuffle[T any](r *Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.Int(0, i+1)
		s[i], s[j] = s[j], s[i]
	}
}
