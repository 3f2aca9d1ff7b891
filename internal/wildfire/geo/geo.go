// Package geo implements the small geometry kernel the wildfire pipeline
// builds on: lat/lon coordinates, axis-aligned bounding boxes, and line
// segment intersection. Every predicate takes an explicit eps tolerance
// rather than comparing floats for exact equality.
package geo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Coord is a point in lat/lon space.
type Coord struct {
	Lat float64
	Lon float64
}

func (c Coord) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lon)
}

// IsClose reports whether c and other are within eps of each other in
// squared Euclidean distance (avoids a sqrt on the hot path).
func (c Coord) IsClose(other Coord, eps float64) bool {
	dlat := c.Lat - other.Lat
	dlon := c.Lon - other.Lon
	return dlat*dlat+dlon*dlon <= eps*eps
}

// Geo is implemented by anything that can report a representative point and
// an enclosing box. HRtree items and Pixel/PixelList/Wildfire all satisfy it.
type Geo interface {
	Centroid() Coord
	BoundingBox() BoundingBox
}

// BoundingBox is an axis-aligned lat/lon rectangle with ll the
// (min-lat, min-lon) corner and ur the (max-lat, max-lon) corner.
//
// The zero value is not a valid box; use DefaultBoundingBox for the
// "never overlaps anything" sentinel.
type BoundingBox struct {
	LL Coord
	UR Coord
}

// DefaultBoundingBox returns the sentinel box at positive infinity on both
// corners. Because every real coordinate is finite, this box never compares
// as overlapping or containing anything, including another sentinel box.
func DefaultBoundingBox() BoundingBox {
	return BoundingBox{
		LL: Coord{Lat: math.Inf(1), Lon: math.Inf(1)},
		UR: Coord{Lat: math.Inf(1), Lon: math.Inf(1)},
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%f,%f,%f,%f", b.LL.Lat, b.LL.Lon, b.UR.Lat, b.UR.Lon)
}

// ContainsCoord admits points within eps of the box interior on both axes.
func (b BoundingBox) ContainsCoord(c Coord, eps float64) bool {
	lonInRange := (c.Lon-b.UR.Lon) < eps && (c.Lon-b.LL.Lon) > -eps
	latInRange := (c.Lat-b.UR.Lat) < eps && (c.Lat-b.LL.Lat) > -eps
	return lonInRange && latInRange
}

// Overlap returns false if either rectangle is strictly to the right/above
// the other by more than eps, or if any corner is non-finite — the sentinel
// box is deliberately non-overlapping with everything.
func (b BoundingBox) Overlap(other BoundingBox, eps float64) bool {
	if b.LL.Lon-other.UR.Lon > eps {
		return false
	}
	if other.LL.Lon-b.UR.Lon > eps {
		return false
	}
	if b.LL.Lat-other.UR.Lat > eps {
		return false
	}
	if other.LL.Lat-b.UR.Lat > eps {
		return false
	}

	for _, v := range []float64{b.LL.Lat, b.LL.Lon, b.UR.Lat, b.UR.Lon, other.LL.Lat, other.LL.Lon, other.UR.Lat, other.UR.Lon} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}

	return true
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	return BoundingBox{
		LL: Coord{Lat: floats.Min([]float64{b.LL.Lat, other.LL.Lat}), Lon: floats.Min([]float64{b.LL.Lon, other.LL.Lon})},
		UR: Coord{Lat: floats.Max([]float64{b.UR.Lat, other.UR.Lat}), Lon: floats.Max([]float64{b.UR.Lon, other.UR.Lon})},
	}
}

// TriangleCentroid is the arithmetic mean of three vertices.
func TriangleCentroid(v1, v2, v3 Coord) Coord {
	return Coord{
		Lat: (v1.Lat + v2.Lat + v3.Lat) / 3.0,
		Lon: (v1.Lon + v2.Lon + v3.Lon) / 3.0,
	}
}

// Line is a straight segment between two coordinates.
type Line struct {
	Start Coord
	End   Coord
}

// IntersectResult is the outcome of a successful Line.Intersect.
type IntersectResult struct {
	Intersection Coord
	// IntersectIsEndpoints is true when the intersection coincides with an
	// endpoint of both segments — used to ignore shared-vertex touches in
	// polygon containment tests.
	IntersectIsEndpoints bool
}

// IsClose reports whether c is within eps of the infinite line through l,
// measured as perpendicular distance (not restricted to the segment).
func (l Line) IsClose(c Coord, eps float64) bool {
	// Perpendicular distance squared = |cross product|^2 / |segment|^2.
	dx := l.End.Lon - l.Start.Lon
	dy := l.End.Lat - l.Start.Lat
	segLenSq := dx*dx + dy*dy
	if segLenSq == 0 {
		return l.Start.IsClose(c, eps)
	}
	cross := dx*(l.Start.Lat-c.Lat) - dy*(l.Start.Lon-c.Lon)
	distSq := (cross * cross) / segLenSq
	return distSq <= eps*eps
}

// Intersect returns the intersection point of l and other, or false if they
// are parallel, colinear, or the intersection lies outside either segment.
func (l Line) Intersect(other Line, eps float64) (IntersectResult, bool) {
	endpoints := []Coord{l.Start, l.End}
	otherEndpoints := []Coord{other.Start, other.End}

	numClose := 0
	for _, a := range endpoints {
		for _, b := range otherEndpoints {
			if a.IsClose(b, eps) {
				numClose++
			}
		}
	}
	if numClose > 1 {
		return IntersectResult{}, false
	}

	m1 := slope(l)
	m2 := slope(other)

	if m1 == m2 {
		return IntersectResult{}, false
	}

	var x, y float64

	switch {
	case math.IsNaN(m1):
		// l is a degenerate point.
		x, y = l.Start.Lon, l.Start.Lat
		if !math.IsInf(m2, 0) {
			b2 := other.Start.Lat - m2*other.Start.Lon
			expectedY := m2*x + b2
			if math.Abs(expectedY-y) > eps {
				return IntersectResult{}, false
			}
		} else {
			if math.Abs(x-other.Start.Lon) > eps {
				return IntersectResult{}, false
			}
		}
	case math.IsNaN(m2):
		x, y = other.Start.Lon, other.Start.Lat
		if !math.IsInf(m1, 0) {
			b1 := l.Start.Lat - m1*l.Start.Lon
			expectedY := m1*x + b1
			if math.Abs(expectedY-y) > eps {
				return IntersectResult{}, false
			}
		} else {
			if math.Abs(x-l.Start.Lon) > eps {
				return IntersectResult{}, false
			}
		}
	case math.IsInf(m1, 0):
		x = l.Start.Lon
		b2 := other.Start.Lat - m2*other.Start.Lon
		y = m2*x + b2
	case math.IsInf(m2, 0):
		x = other.Start.Lon
		b1 := l.Start.Lat - m1*l.Start.Lon
		y = m1*x + b1
	default:
		b1 := l.Start.Lat - m1*l.Start.Lon
		b2 := other.Start.Lat - m2*other.Start.Lon
		x = (b2 - b1) / (m1 - m2)
		y = m1*x + b1
	}

	intersection := Coord{Lat: y, Lon: x}

	if !withinSegment(l, intersection, eps) || !withinSegment(other, intersection, eps) {
		return IntersectResult{}, false
	}

	isEndpoints := isNearEndpoint(l, intersection, eps) && isNearEndpoint(other, intersection, eps)

	return IntersectResult{Intersection: intersection, IntersectIsEndpoints: isEndpoints}, true
}

// slope returns the line's slope in lat/lon space, NaN for a degenerate
// point segment, and +/-Inf for a vertical segment.
func slope(l Line) float64 {
	dx := l.End.Lon - l.Start.Lon
	dy := l.End.Lat - l.Start.Lat
	if dx == 0 && dy == 0 {
		return math.NaN()
	}
	if dx == 0 {
		return math.Inf(1)
	}
	return dy / dx
}

func withinSegment(l Line, c Coord, eps float64) bool {
	minLat, maxLat := math.Min(l.Start.Lat, l.End.Lat), math.Max(l.Start.Lat, l.End.Lat)
	minLon, maxLon := math.Min(l.Start.Lon, l.End.Lon), math.Max(l.Start.Lon, l.End.Lon)
	return c.Lat >= minLat-eps && c.Lat <= maxLat+eps && c.Lon >= minLon-eps && c.Lon <= maxLon+eps
}

func isNearEndpoint(l Line, c Coord, eps float64) bool {
	return l.Start.IsClose(c, eps) || l.End.IsClose(c, eps)
}
