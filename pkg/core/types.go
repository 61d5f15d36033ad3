// pkg/core/types.go
package core

import "math"

// TeamID identifies a side. NoTeam marks neutral or contested ownership.
type TeamID int

// NoTeam is the null team id.
const NoTeam TeamID = 0

// Valid reports whether t names a real team.
func (t TeamID) Valid() bool {
	return t != NoTeam
}

// FiringSolution is an angle/speed pair produced by the firing-solution search.
// Hit is false when the solution is only the best near-miss.
type FiringSolution struct {
	Angle       float64 `json:"angle"`
	Speed       float64 `json:"speed"`
	Hit         bool    `json:"hit"`
	ClosestDist float64 `json:"closestDist"`
}

// Velocity returns the launch velocity vector of the solution.
func (s FiringSolution) Velocity() Vec2 {
	return Vec2{X: math.Cos(s.Angle) * s.Speed, Y: math.Sin(s.Angle) * s.Speed}
}
