package terrain

// Config holds generation and edit tunables. Fractions are relative to the base radius.
type Config struct {
	// Segments is the vertex count of the base circle; 0 derives it from the radius.
	Segments       int
	ImpactSegments int

	MaxCraters   int
	MaxMountains int
	EditAttempts int

	CraterMin float64
	CraterMax float64
	// CraterSegments is the vertex count of generated crater bites.
	CraterSegments int

	MountainMin     float64
	MountainMax     float64
	MountainSpanMin float64
	MountainSpanMax float64
	// MountainPoints is the number of samples along a mountain ridge.
	MountainPoints int

	Jitter       float64
	BumpSegments int
	BumpJitter   float64
}

// DefaultConfig returns the stock generator tunables.
func DefaultConfig() Config {
	return Config{
		ImpactSegments:  16,
		MaxCraters:      3,
		MaxMountains:    3,
		EditAttempts:    20,
		CraterMin:       0.12,
		CraterMax:       0.25,
		CraterSegments:  16,
		MountainMin:     0.08,
		MountainMax:     0.22,
		MountainSpanMin: 0.2,
		MountainSpanMax: 0.5,
		MountainPoints:  7,
		Jitter:          0.15,
		BumpSegments:    12,
		BumpJitter:      0.25,
	}
}

// segmentsFor picks the base circle resolution: roughly one vertex every 4 units, 24 to 128.
func (c Config) segmentsFor(radius float64) int {
	if c.Segments > 0 {
		return c.Segments
	}
	return min(128, max(24, int(radius/4)))
}
