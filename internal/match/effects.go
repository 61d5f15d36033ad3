package match

import "github.com/OCAP2/artillery/pkg/core"

// Effects receives presentation events. Implementations must not call back into the Match.
type Effects interface {
	Explosion(pos core.Vec2, radius float64, kind string)
	TerrainChanged(bodyID int, regions [][]float64)
	MountDestroyed(mountID int, pos core.Vec2)
	ProjectileFired(mountID int, origin, velocity core.Vec2, kind string)
}

// NopEffects discards every event.
type NopEffects struct{}

var _ Effects = NopEffects{}

func (NopEffects) Explosion(core.Vec2, float64, string)              {}
func (NopEffects) TerrainChanged(int, [][]float64)                   {}
func (NopEffects) MountDestroyed(int, core.Vec2)                     {}
func (NopEffects) ProjectileFired(int, core.Vec2, core.Vec2, string) {}
