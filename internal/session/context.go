package session

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/artillery/pkg/core"
)

// Context holds the current match and turn state
type Context struct {
	mu    sync.RWMutex
	match *core.MatchInfo
	turn  uint
	phase string
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		match: &core.MatchInfo{Name: "No match loaded"},
	}
}

// GetMatch returns the current match
func (c *Context) GetMatch() *core.MatchInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.match
}

// SetMatch sets the current match and resets the turn state
func (c *Context) SetMatch(info *core.MatchInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.match = info
	c.turn = 0
	c.phase = ""
}

// SetTurn records the current turn and phase
func (c *Context) SetTurn(turn uint, phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn = turn
	c.phase = phase
}

// Turn returns the current turn and phase
func (c *Context) Turn() (uint, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn, c.phase
}

// Attrs returns the log attributes describing the current match. Its signature matches
// logging.ContextProvider.
func (c *Context) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.match == nil || c.match.ID == 0 {
		return nil
	}
	attrs := []slog.Attr{
		slog.Uint64("matchId", uint64(c.match.ID)),
		slog.String("matchName", c.match.Name),
	}
	if c.phase != "" {
		attrs = append(attrs, slog.Uint64("turn", uint64(c.turn)), slog.String("phase", c.phase))
	}
	return attrs
}
