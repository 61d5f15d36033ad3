// pkg/core/frame.go
package core

// BodyState is one physics body as seen by the renderer.
type BodyState struct {
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Rotation float64 `json:"rotation" msgpack:"r"`
	Kind     string  `json:"kind" msgpack:"k"`
}

// TerrainState carries the region set of one terrain body, each polygon as a flat
// [x0, y0, x1, y1, ...] sequence in world space.
type TerrainState struct {
	BodyID  int         `json:"bodyId" msgpack:"id"`
	Regions [][]float64 `json:"regions" msgpack:"rg"`
}

// Frame is the per-frame snapshot consumed by a renderer. Terrain only lists bodies whose
// regions changed since the previous frame.
type Frame struct {
	Turn    uint           `json:"turn" msgpack:"t"`
	Phase   string         `json:"phase" msgpack:"p"`
	Bodies  []BodyState    `json:"bodies" msgpack:"b"`
	Terrain []TerrainState `json:"terrain,omitempty" msgpack:"tr,omitempty"`
}
