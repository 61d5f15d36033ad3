package turn

import (
	"sort"
	"time"
)

// Scheduler runs fn once delay has passed.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

type scheduled struct {
	at  time.Duration
	seq int
	fn  func()
}

// FrameScheduler is a Scheduler driven by frame time instead of the wall clock.
type FrameScheduler struct {
	now     time.Duration
	seq     int
	pending []scheduled
}

// NewFrameScheduler creates an empty scheduler at time zero.
func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{}
}

// Schedule queues fn to run once the scheduler has advanced by delay.
func (s *FrameScheduler) Schedule(delay time.Duration, fn func()) {
	s.seq++
	s.pending = append(s.pending, scheduled{at: s.now + delay, seq: s.seq, fn: fn})
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].at != s.pending[j].at {
			return s.pending[i].at < s.pending[j].at
		}
		return s.pending[i].seq < s.pending[j].seq
	})
}

// Advance moves time forward and runs every callback that became due, in order.
func (s *FrameScheduler) Advance(dt time.Duration) {
	s.now += dt
	for len(s.pending) > 0 && s.pending[0].at <= s.now {
		next := s.pending[0]
		s.pending = s.pending[1:]
		next.fn()
	}
}

// Flush runs every pending callback immediately.
func (s *FrameScheduler) Flush() {
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		if next.at > s.now {
			s.now = next.at
		}
		next.fn()
	}
}

// Pending returns the number of queued callbacks.
func (s *FrameScheduler) Pending() int { return len(s.pending) }
