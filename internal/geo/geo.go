package geo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/OCAP2/artillery/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// REGIONS
// Terrain silhouettes are held as plain vertex rings so that queries (raycast, triangulation,
// containment) never allocate library geometries. Boolean edits convert to simplefeatures,
// run the overlay and convert back; the result always replaces the whole set.

// ErrDegenerate is returned when a ring or edit has fewer than 3 usable vertices.
var ErrDegenerate = errors.New("degenerate polygon")

// minRegionArea drops slivers produced by the overlay.
const minRegionArea = 1e-6

// Region is one simple polygon, counter-clockwise outer ring plus clockwise holes.
type Region struct {
	Outer Ring
	Holes []Ring
}

// Area returns the outer area minus the hole area.
func (r Region) Area() float64 {
	a := r.Outer.Area()
	for _, h := range r.Holes {
		a -= h.Area()
	}
	return a
}

// Contains reports whether p lies inside the outer ring and outside every hole.
func (r Region) Contains(p core.Vec2) bool {
	if !r.Outer.Contains(p) {
		return false
	}
	for _, h := range r.Holes {
		if h.Contains(p) {
			return false
		}
	}
	return true
}

func (r Region) clone() Region {
	out := Region{Outer: r.Outer.clone()}
	if len(r.Holes) > 0 {
		out.Holes = make([]Ring, len(r.Holes))
		for i, h := range r.Holes {
			out.Holes[i] = h.clone()
		}
	}
	return out
}

// RegionSet is an immutable list of regions. Edits return a new set.
type RegionSet struct {
	regions []Region
}

// NewRegionSet copies the given regions, normalizing winding and dropping degenerate ones.
func NewRegionSet(regions ...Region) RegionSet {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		if len(r.Outer) < 3 || r.Outer.Area() < minRegionArea {
			continue
		}
		n := Region{Outer: r.Outer.CCW()}
		for _, h := range r.Holes {
			if len(h) >= 3 && h.Area() >= minRegionArea {
				n.Holes = append(n.Holes, h.CW())
			}
		}
		out = append(out, n)
	}
	return RegionSet{regions: out}
}

// Len returns the number of regions.
func (s RegionSet) Len() int { return len(s.regions) }

// IsEmpty reports whether nothing remains of the silhouette.
func (s RegionSet) IsEmpty() bool { return len(s.regions) == 0 }

// Region returns a copy of region i.
func (s RegionSet) Region(i int) Region { return s.regions[i].clone() }

// Regions returns a deep copy of all regions.
func (s RegionSet) Regions() []Region {
	out := make([]Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.clone()
	}
	return out
}

// Area sums the area of every region.
func (s RegionSet) Area() float64 {
	var a float64
	for _, r := range s.regions {
		a += r.Area()
	}
	return a
}

// Contains reports whether p lies inside any region.
func (s RegionSet) Contains(p core.Vec2) bool {
	for _, r := range s.regions {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// MaxRadius returns the distance from origin to the farthest vertex.
func (s RegionSet) MaxRadius(origin core.Vec2) float64 {
	var m float64
	for _, r := range s.regions {
		for _, p := range r.Outer {
			m = math.Max(m, p.Dist(origin))
		}
	}
	return m
}

// Hash fingerprints the exact vertex data of the set.
func (s RegionSet) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}
	for _, r := range s.regions {
		write(float64(len(r.Outer)))
		for _, p := range r.Outer {
			write(p.X)
			write(p.Y)
		}
		for _, hole := range r.Holes {
			write(float64(len(hole)))
			for _, p := range hole {
				write(p.X)
				write(p.Y)
			}
		}
	}
	return h.Sum64()
}

// Difference subtracts the polygon cut from every region.
func (s RegionSet) Difference(cut Ring) (RegionSet, error) {
	if len(cut) < 3 {
		return s, ErrDegenerate
	}
	if s.IsEmpty() {
		return s, nil
	}
	g, err := geom.Difference(s.Geometry(), ringPolygon(cut).AsGeometry())
	if err != nil {
		return s, fmt.Errorf("difference: %w", err)
	}
	return RegionSetFromGeometry(g), nil
}

// Union merges the polygon add into the set.
func (s RegionSet) Union(add Ring) (RegionSet, error) {
	if len(add) < 3 {
		return s, ErrDegenerate
	}
	if s.IsEmpty() {
		return NewRegionSet(Region{Outer: add}), nil
	}
	g, err := geom.Union(s.Geometry(), ringPolygon(add).AsGeometry())
	if err != nil {
		return s, fmt.Errorf("union: %w", err)
	}
	return RegionSetFromGeometry(g), nil
}

// Geometry returns the set as a simplefeatures MultiPolygon.
func (s RegionSet) Geometry() geom.Geometry {
	polys := make([]geom.Polygon, 0, len(s.regions))
	for _, r := range s.regions {
		rings := make([]geom.LineString, 0, 1+len(r.Holes))
		rings = append(rings, ringLineString(r.Outer))
		for _, h := range r.Holes {
			rings = append(rings, ringLineString(h))
		}
		polys = append(polys, geom.NewPolygon(rings))
	}
	return geom.NewMultiPolygon(polys).AsGeometry()
}

// WKB encodes the set as a MultiPolygon in well-known binary.
func (s RegionSet) WKB() []byte {
	return s.Geometry().AsBinary()
}

// RegionSetFromWKB decodes a set previously encoded with WKB.
func RegionSetFromWKB(wkb []byte) (RegionSet, error) {
	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return RegionSet{}, fmt.Errorf("decode regions: %w", err)
	}
	return RegionSetFromGeometry(g), nil
}

// RegionSetFromGeometry collects every areal part of g. Points and lines are ignored.
func RegionSetFromGeometry(g geom.Geometry) RegionSet {
	var regions []Region
	collectRegions(g, &regions)
	return NewRegionSet(regions...)
}

func collectRegions(g geom.Geometry, out *[]Region) {
	if g.IsEmpty() {
		return
	}
	if p, ok := g.AsPolygon(); ok {
		*out = append(*out, polygonRegion(p))
		return
	}
	if mp, ok := g.AsMultiPolygon(); ok {
		for i := 0; i < mp.NumPolygons(); i++ {
			*out = append(*out, polygonRegion(mp.PolygonN(i)))
		}
		return
	}
	if gc, ok := g.AsGeometryCollection(); ok {
		for i := 0; i < gc.NumGeometries(); i++ {
			collectRegions(gc.GeometryN(i), out)
		}
	}
}

func polygonRegion(p geom.Polygon) Region {
	r := Region{Outer: lineStringRing(p.ExteriorRing())}
	for i := 0; i < p.NumInteriorRings(); i++ {
		r.Holes = append(r.Holes, lineStringRing(p.InteriorRingN(i)))
	}
	return r
}

func lineStringRing(ls geom.LineString) Ring {
	seq := ls.Coordinates()
	n := seq.Length()
	ring := make(Ring, 0, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		ring = append(ring, core.V(xy.X, xy.Y))
	}
	if k := len(ring); k > 1 && ring[0] == ring[k-1] {
		ring = ring[:k-1]
	}
	return ring
}

func ringLineString(r Ring) geom.LineString {
	flat := make([]float64, 0, (len(r)+1)*2)
	for _, p := range r {
		flat = append(flat, p.X, p.Y)
	}
	flat = append(flat, r[0].X, r[0].Y)
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

func ringPolygon(r Ring) geom.Polygon {
	return geom.NewPolygon([]geom.LineString{ringLineString(r.CCW())})
}
