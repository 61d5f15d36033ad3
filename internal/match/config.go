package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/artillery/internal/ballistics"
	"github.com/OCAP2/artillery/internal/gravity"
	"github.com/OCAP2/artillery/internal/mount"
	"github.com/OCAP2/artillery/internal/physics"
	"github.com/OCAP2/artillery/internal/search"
	"github.com/OCAP2/artillery/internal/terrain"
	"github.com/OCAP2/artillery/internal/turn"
	"github.com/OCAP2/artillery/pkg/core"
)

var (
	ErrUnknownMount = errors.New("unknown mount")
	ErrWrongPhase   = errors.New("wrong turn phase")
	ErrUnknownKind  = errors.New("unknown projectile kind")
	ErrMatchOver    = errors.New("match is over")
	ErrInvalid      = errors.New("invalid match config")
)

// Behavior is what a projectile does when it resolves.
type Behavior int

const (
	// Explode carves terrain and damages mounts in the blast radius.
	Explode Behavior = iota
	// Intercept destroys an enemy projectile in range, together with itself.
	Intercept
	// Colonize plants a new mount of the shooter's team where it lands.
	Colonize
	// Build raises terrain where it lands.
	Build
)

var behaviorNames = map[Behavior]string{
	Explode:   "explode",
	Intercept: "intercept",
	Colonize:  "colonize",
	Build:     "build",
}

func (b Behavior) String() string {
	if s, ok := behaviorNames[b]; ok {
		return s
	}
	return fmt.Sprintf("behavior(%d)", int(b))
}

// ParseBehavior parses a behavior name, case-insensitive.
func ParseBehavior(s string) (Behavior, error) {
	for b, name := range behaviorNames {
		if strings.EqualFold(s, name) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("behavior %q: %w", s, ErrInvalid)
}

// Kind is one entry of the projectile table.
type Kind struct {
	Name            string
	Damage          float64
	Cost            int
	ExplosionRadius float64
	Behavior        Behavior
	InterceptRange  float64
}

// DefaultKinds returns the stock projectile table.
func DefaultKinds() []Kind {
	return []Kind{
		{Name: "standard", Damage: 35, Cost: 1, ExplosionRadius: 25, Behavior: Explode},
		{Name: "heavy", Damage: 60, Cost: 3, ExplosionRadius: 40, Behavior: Explode},
		{Name: "defender", Damage: 10, Cost: 1, ExplosionRadius: 10, Behavior: Intercept, InterceptRange: 35},
		{Name: "colonizer", Damage: 0, Cost: 4, ExplosionRadius: 15, Behavior: Colonize},
		{Name: "builder", Damage: 0, Cost: 2, ExplosionRadius: 20, Behavior: Build},
	}
}

// Config is everything needed to build a match. The same Config always builds the same match.
type Config struct {
	Name            string
	Seed            int64
	Planets         int
	Teams           int
	MinRadius       float64
	MaxRadius       float64
	WorldRadius     float64
	PlanetGap       float64
	MountsPerPlanet int
	// AITeams are planned automatically at every Planning entry.
	AITeams            []core.TeamID
	ProjectileLifetime time.Duration
	// MaxTurns ends the match after that many turns; 0 means no limit.
	MaxTurns uint

	Terrain    terrain.Config
	Mount      mount.Config
	Physics    physics.Config
	Gravity    gravity.Config
	Ballistics ballistics.Config
	Search     search.Config
	Turn       turn.Config
	Kinds      []Kind
}

// DefaultConfig returns a two-team, four-planet match with every team played by the AI.
func DefaultConfig() Config {
	return Config{
		Name:               "skirmish",
		Seed:               1,
		Planets:            4,
		Teams:              2,
		MinRadius:          60,
		MaxRadius:          140,
		WorldRadius:        1500,
		PlanetGap:          80,
		MountsPerPlanet:    2,
		AITeams:            []core.TeamID{1, 2},
		ProjectileLifetime: 8 * time.Second,
		Terrain:            terrain.DefaultConfig(),
		Mount:              mount.DefaultConfig(),
		Physics:            physics.DefaultConfig(),
		Gravity:            gravity.DefaultConfig(),
		Ballistics:         ballistics.DefaultConfig(),
		Search:             search.DefaultConfig(),
		Turn:               turn.DefaultConfig(),
		Kinds:              DefaultKinds(),
	}
}

// Validate checks the fields layout depends on.
func (c Config) Validate() error {
	switch {
	case c.Teams < 1:
		return fmt.Errorf("teams %d: %w", c.Teams, ErrInvalid)
	case c.Planets < c.Teams:
		return fmt.Errorf("%d planets for %d teams: %w", c.Planets, c.Teams, ErrInvalid)
	case c.MinRadius <= 0 || c.MaxRadius < c.MinRadius:
		return fmt.Errorf("radius range [%g, %g]: %w", c.MinRadius, c.MaxRadius, ErrInvalid)
	case c.WorldRadius <= c.MaxRadius:
		return fmt.Errorf("world radius %g: %w", c.WorldRadius, ErrInvalid)
	case c.Physics.TimeStep <= 0:
		return fmt.Errorf("time step %g: %w", c.Physics.TimeStep, ErrInvalid)
	case len(c.Kinds) == 0:
		return fmt.Errorf("no projectile kinds: %w", ErrInvalid)
	}
	return nil
}

// Snapshot returns the layout-relevant fields as stored alongside a recorded match.
func (c Config) Snapshot() map[string]any {
	return map[string]any{
		"name":            c.Name,
		"seed":            c.Seed,
		"planets":         c.Planets,
		"teams":           c.Teams,
		"minRadius":       c.MinRadius,
		"maxRadius":       c.MaxRadius,
		"worldRadius":     c.WorldRadius,
		"planetGap":       c.PlanetGap,
		"mountsPerPlanet": c.MountsPerPlanet,
		"terrainSegments": c.Terrain.Segments,
		"maxCraters":      c.Terrain.MaxCraters,
		"maxMountains":    c.Terrain.MaxMountains,
	}
}

// FromSnapshot overlays a stored snapshot onto base. Numbers may arrive as float64 after a JSON
// round trip.
func FromSnapshot(base Config, snap map[string]any) Config {
	c := base
	if v, ok := snap["name"].(string); ok {
		c.Name = v
	}
	setInt64(snap, "seed", &c.Seed)
	setInt(snap, "planets", &c.Planets)
	setInt(snap, "teams", &c.Teams)
	setFloat(snap, "minRadius", &c.MinRadius)
	setFloat(snap, "maxRadius", &c.MaxRadius)
	setFloat(snap, "worldRadius", &c.WorldRadius)
	setFloat(snap, "planetGap", &c.PlanetGap)
	setInt(snap, "mountsPerPlanet", &c.MountsPerPlanet)
	setInt(snap, "terrainSegments", &c.Terrain.Segments)
	setInt(snap, "maxCraters", &c.Terrain.MaxCraters)
	setInt(snap, "maxMountains", &c.Terrain.MaxMountains)
	return c
}

func number(snap map[string]any, key string) (float64, bool) {
	switch v := snap[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func setFloat(snap map[string]any, key string, dst *float64) {
	if v, ok := number(snap, key); ok {
		*dst = v
	}
}

func setInt(snap map[string]any, key string, dst *int) {
	if v, ok := number(snap, key); ok {
		*dst = int(v)
	}
}

func setInt64(snap map[string]any, key string, dst *int64) {
	// int64 seeds above 2^53 do not survive float64.
	if v, ok := snap[key].(int64); ok {
		*dst = v
		return
	}
	if v, ok := number(snap, key); ok {
		*dst = int64(v)
	}
}
