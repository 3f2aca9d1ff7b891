// Package hrtree implements a Hilbert-curve-ordered R-tree view: a
// bulk-built, read-mostly spatial index over an externally owned slice of
// geo-objects, supporting region queries with in-place item mutation.
package hrtree

import (
	"math"

	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
)

// HilbertCoord is an (x, y) grid position on a Hilbert curve, prior to
// conversion to a 1-D distance along the curve.
type HilbertCoord struct {
	X uint32
	Y uint32
}

// Curve maps lat/lon coordinates within a fixed domain onto an order-N
// Hilbert curve's 1-D distance, and back.
type Curve struct {
	iterations int
	domain     geo.BoundingBox
	maxDim     uint32
	width      float64
	height     float64
}

// NewCurve builds a Hilbert curve of the given order (1..31) over domain.
func NewCurve(iterations int, domain geo.BoundingBox) *Curve {
	if iterations < 1 || iterations > 31 {
		panic("hrtree: iterations must be in [1, 31]")
	}

	width := domain.UR.Lon - domain.LL.Lon
	height := domain.UR.Lat - domain.LL.Lat
	if width <= 0 || height < 0 {
		panic("hrtree: domain must have positive width and non-negative height")
	}

	return &Curve{
		iterations: iterations,
		domain:     domain,
		maxDim:     calcMaxDimForIterations(iterations),
		width:      width,
		height:     height,
	}
}

func calcMaxDimForIterations(iterations int) uint32 {
	return (uint32(1) << uint(iterations)) - 1
}

// MaxNum is the largest curve distance this curve can produce, 2^(2*order)-1.
func (c *Curve) MaxNum() uint64 {
	return (uint64(1) << uint(2*c.iterations)) - 1
}

func (c *Curve) side() uint64 {
	return uint64(c.maxDim) + 1
}

// TranslateToHilbertCoords maps coord into the curve's [0, maxDim] grid. The
// latitude axis becomes the Hilbert x coordinate and longitude becomes y.
func (c *Curve) TranslateToHilbertCoords(coord geo.Coord) HilbertCoord {
	edgeLen := float64(c.side())

	x := uint32((coord.Lat - c.domain.LL.Lat) / c.height * edgeLen)
	y := uint32((coord.Lon - c.domain.LL.Lon) / c.width * edgeLen)

	if x > c.maxDim {
		x = c.maxDim
	}
	if y > c.maxDim {
		y = c.maxDim
	}

	return HilbertCoord{X: x, Y: y}
}

// TranslateToCurveDistance composes TranslateToHilbertCoords with
// CoordsToInteger.
func (c *Curve) TranslateToCurveDistance(coord geo.Coord) uint64 {
	return c.CoordsToInteger(c.TranslateToHilbertCoords(coord))
}

// CoordsToInteger maps a grid position to its 1-D distance along the curve.
//
// This implements the standard Hilbert-curve quadrant-rotation recursion
// (xy2d), equivalent to the "transpose, Gray-decode, undo excess work"
// bit-twiddling form: both describe the same canonical Hilbert curve and
// agree on every (x, y) pair, but the rotation form is more direct to read.
func (c *Curve) CoordsToInteger(hc HilbertCoord) uint64 {
	n := c.side()
	x, y := uint64(hc.X), uint64(hc.Y)

	var d uint64
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint64
		if x&s > 0 {
			rx = 1
		}
		if y&s > 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		x, y = rotate(n, x, y, rx, ry)
	}

	return d
}

// IntegerToCoords is the inverse of CoordsToInteger.
func (c *Curve) IntegerToCoords(h uint64) HilbertCoord {
	n := c.side()
	t := h

	var x, y uint64
	for s := uint64(1); s < n; s *= 2 {
		rx := uint64(1) & (t / 2)
		ry := uint64(1) & (t ^ rx)
		x, y = rotate(s, x, y, rx, ry)
		x += s * rx
		y += s * ry
		t /= 4
	}

	return HilbertCoord{X: uint32(x), Y: uint32(y)}
}

// rotate performs the quadrant rotation/reflection step shared by both the
// forward and inverse Hilbert mappings.
func rotate(n, x, y, rx, ry uint64) (uint64, uint64) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		x, y = y, x
	}
	return x, y
}

// buildDomain computes the union bounding box of every item.
func buildDomain[T geo.Geo](data []T) geo.BoundingBox {
	box := geo.BoundingBox{
		LL: geo.Coord{Lat: math.Inf(1), Lon: math.Inf(1)},
		UR: geo.Coord{Lat: math.Inf(-1), Lon: math.Inf(-1)},
	}
	for _, item := range data {
		box = box.Union(item.BoundingBox())
	}
	return box
}
