// Package physics is the rigid-body substrate shared by live play and shadow simulations.
//
// An Engine owns the live World and hands out disposable shadow Worlds. Circle bodies live in
// an ark ECS world; terrain is a set of static triangle colliders.
package physics

import (
	"errors"
	"sync/atomic"
)

// ErrNotInitialized is returned when a world is requested before Init.
var ErrNotInitialized = errors.New("physics engine not initialized")

// Config holds world tunables.
type Config struct {
	// TimeStep is the fixed step used by callers that advance the world.
	TimeStep float64
	// Damping is linear velocity damping per second.
	Damping float64
	// Bounds is the distance from the origin beyond which a body is out of bounds.
	Bounds float64
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{TimeStep: 1.0 / 60, Damping: 0, Bounds: 4000}
}

// Engine owns the live world.
type Engine struct {
	cfg     Config
	live    *World
	shadows atomic.Int64
}

// NewEngine creates an engine. Init must be called before any world is used.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Init creates the live world. Calling it again keeps the existing world.
func (e *Engine) Init() {
	if e.live == nil {
		e.live = newWorld(e.cfg, nil)
	}
}

// Config returns the world tunables.
func (e *Engine) Config() Config { return e.cfg }

// Live returns the live world.
func (e *Engine) Live() (*World, error) {
	if e.live == nil {
		return nil, ErrNotInitialized
	}
	return e.live, nil
}

// NewShadow creates a private world sharing nothing with the live one. Callers must Release it.
func (e *Engine) NewShadow() (*World, error) {
	if e.live == nil {
		return nil, ErrNotInitialized
	}
	e.shadows.Add(1)
	return newWorld(e.cfg, func() { e.shadows.Add(-1) }), nil
}

// ActiveShadows returns the number of shadow worlds not yet released.
func (e *Engine) ActiveShadows() int {
	return int(e.shadows.Load())
}
