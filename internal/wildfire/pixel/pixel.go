// Package pixel implements the satellite fire-pixel quadrilateral and its
// aggregate list type, including the deterministic binary codec used by the
// durable store.
package pixel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
)

// MaskCode is the satellite mask flag describing the outcome of the fire
// characterization algorithm for a pixel.
type MaskCode int16

// DataQualityFlagCode is the satellite data quality flag for a pixel.
type DataQualityFlagCode int16

// Pixel is the area viewed from a GOES satellite that produced a single fire
// detection. Corners are expected CCW: ul, ll, lr, ur.
type Pixel struct {
	UL Coord
	LL Coord
	LR Coord
	UR Coord

	// Power is the radiative power in megawatts.
	Power float64
	// Area is the estimated fire area in square meters.
	Area float64
	// Temperature is the estimated fire temperature in Kelvin.
	Temperature float64
	// ScanAngle is the Euclidian-norm combination of the satellite's x/y
	// scan angles; a proxy for edge-on vs. straight-down viewing geometry.
	ScanAngle float64

	MaskFlag        MaskCode
	DataQualityFlag DataQualityFlagCode
}

// Coord is a type alias so callers can write pixel.Coord without importing
// the geo package directly.
type Coord = geo.Coord

// Centroid computes the centroid of the pixel treated as a convex
// quadrilateral: split it into two triangles along each diagonal, connect
// the two triangle centroids with a line, and intersect the two resulting
// lines. This handles skewed quads correctly; for rectangles it reduces to
// the arithmetic mean of the corners.
func (p Pixel) Centroid() Coord {
	t1c := geo.TriangleCentroid(p.UL, p.LL, p.LR)
	t2c := geo.TriangleCentroid(p.UL, p.UR, p.LR)
	diag1 := geo.Line{Start: t1c, End: t2c}

	t3c := geo.TriangleCentroid(p.UL, p.LL, p.UR)
	t4c := geo.TriangleCentroid(p.LR, p.UR, p.LL)
	diag2 := geo.Line{Start: t3c, End: t4c}

	res, ok := diag1.Intersect(diag2, 1.0e-30)
	if !ok {
		// Degenerate quadrilateral (collinear corners); fall back to the
		// mean of all four corners rather than panic.
		return Coord{
			Lat: (p.UL.Lat + p.LL.Lat + p.LR.Lat + p.UR.Lat) / 4,
			Lon: (p.UL.Lon + p.LL.Lon + p.LR.Lon + p.UR.Lon) / 4,
		}
	}
	return res.Intersection
}

// BoundingBox is the axis-aligned box enclosing all four corners.
func (p Pixel) BoundingBox() geo.BoundingBox {
	minLat := math.Min(math.Min(p.LL.Lat, p.LR.Lat), math.Min(p.UL.Lat, p.UR.Lat))
	maxLat := math.Max(math.Max(p.LL.Lat, p.LR.Lat), math.Max(p.UL.Lat, p.UR.Lat))
	minLon := math.Min(math.Min(p.LL.Lon, p.LR.Lon), math.Min(p.UL.Lon, p.UR.Lon))
	maxLon := math.Max(math.Max(p.LL.Lon, p.LR.Lon), math.Max(p.UL.Lon, p.UR.Lon))

	return geo.BoundingBox{
		LL: Coord{Lat: minLat, Lon: minLon},
		UR: Coord{Lat: maxLat, Lon: maxLon},
	}
}

// ApproxEqual reports whether p and other describe essentially the same
// geographic area — corners only, not power/area/temperature.
func (p Pixel) ApproxEqual(other Pixel, eps float64) bool {
	return p.UL.IsClose(other.UL, eps) &&
		p.UR.IsClose(other.UR, eps) &&
		p.LR.IsClose(other.LR, eps) &&
		p.LL.IsClose(other.LL, eps)
}

func (p Pixel) corners() [4]Coord {
	return [4]Coord{p.UL, p.UR, p.LR, p.LL}
}

func (p Pixel) edges() [4]geo.Line {
	return [4]geo.Line{
		{Start: p.UL, End: p.UR},
		{Start: p.UR, End: p.LR},
		{Start: p.LR, End: p.LL},
		{Start: p.LL, End: p.UL},
	}
}

// ContainsCoord determines whether c is strictly interior to the pixel:
// inside the bounding box, and no line from c to any corner crosses a pixel
// edge at a non-endpoint. Boundary points are excluded.
func (p Pixel) ContainsCoord(c Coord, eps float64) bool {
	if !p.BoundingBox().ContainsCoord(c, eps) {
		return false
	}

	pxlLines := p.edges()
	corners := p.corners()
	coordLines := [4]geo.Line{
		{Start: c, End: corners[0]},
		{Start: c, End: corners[1]},
		{Start: c, End: corners[2]},
		{Start: c, End: corners[3]},
	}

	for _, pLine := range pxlLines {
		for _, cLine := range coordLines {
			if res, ok := pLine.Intersect(cLine, eps); ok {
				if !res.IntersectIsEndpoints {
					return false
				}
			}
		}
	}

	return true
}

// Overlap is true iff pixels are approx-equal; OR any edge of p intersects
// any edge of other at a non-endpoint; OR any corner of p is contained in
// other. Testing corners one direction suffices because convex
// quadrilaterals cannot be disjoint if one contains a vertex of the other.
func (p Pixel) Overlap(other Pixel, eps float64) bool {
	if p.ApproxEqual(other, eps) {
		return true
	}
	if !p.BoundingBox().Overlap(other.BoundingBox(), eps) {
		return false
	}

	selfLines := p.edges()
	otherLines := other.edges()
	for _, sLine := range selfLines {
		for _, oLine := range otherLines {
			if res, ok := sLine.Intersect(oLine, eps); ok {
				if !res.IntersectIsEndpoints {
					return true
				}
			}
		}
	}

	for _, c := range p.corners() {
		if other.ContainsCoord(c, eps) {
			return true
		}
	}

	return false
}

// IsAdjacentTo reports whether p and other share 1 or 2 coincident corner
// vertices, with no non-coincident corner of either interior to the other,
// and neither centroid interior to the other.
func (p Pixel) IsAdjacentTo(other Pixel, eps float64) bool {
	if p.ApproxEqual(other, eps) {
		return false
	}
	if !p.BoundingBox().Overlap(other.BoundingBox(), eps) {
		return false
	}

	selfCoords := p.corners()
	otherCoords := other.corners()

	var selfClose, otherClose [4]bool
	numClose := 0
	for i := range selfCoords {
		for j := range otherCoords {
			if selfCoords[i].IsClose(otherCoords[j], eps) {
				numClose++
				selfClose[i] = true
				otherClose[j] = true
			}
		}
	}

	if numClose < 1 || numClose > 2 {
		return false
	}

	for i := range selfClose {
		if !selfClose[i] && other.ContainsCoord(selfCoords[i], eps) {
			return false
		}
		if !otherClose[i] && p.ContainsCoord(otherCoords[i], eps) {
			return false
		}
	}

	selfCentroid := p.Centroid()
	if other.ContainsCoord(selfCentroid, eps) {
		return false
	}
	otherCentroid := other.Centroid()
	if p.ContainsCoord(otherCentroid, eps) {
		return false
	}

	return true
}

// IsAdjacentToOrOverlaps is the logical OR of IsAdjacentTo and Overlap, with
// early exits on corner-proximity counts and corner-containment checks
// before falling back to the two full predicates.
func (p Pixel) IsAdjacentToOrOverlaps(other Pixel, eps float64) bool {
	if !p.BoundingBox().Overlap(other.BoundingBox(), eps) {
		return false
	}

	selfCoords := p.corners()
	otherCoords := other.corners()

	numClose := 0
	for _, s := range selfCoords {
		for _, o := range otherCoords {
			if s.IsClose(o, eps) {
				numClose++
				if numClose > 1 {
					return true
				}
			}
		}
	}

	for _, s := range selfCoords {
		if other.ContainsCoord(s, eps) {
			return true
		}
	}
	for _, o := range otherCoords {
		if p.ContainsCoord(o, eps) {
			return true
		}
	}

	return p.Overlap(other, eps) || p.IsAdjacentTo(other, eps)
}

// PixelList is an ordered, serialization-stable sequence of Pixels.
type PixelList struct {
	pixels []Pixel
}

// NewPixelList returns an empty PixelList.
func NewPixelList() *PixelList { return &PixelList{} }

// NewPixelListWithCapacity returns an empty PixelList pre-sized for capacity
// pixels.
func NewPixelListWithCapacity(capacity int) *PixelList {
	return &PixelList{pixels: make([]Pixel, 0, capacity)}
}

// Push appends a pixel to the end of the list.
func (l *PixelList) Push(p Pixel) {
	l.pixels = append(l.pixels, p)
}

// Clear empties the list but keeps its backing array for reuse.
func (l *PixelList) Clear() {
	l.pixels = l.pixels[:0]
}

// Len returns the number of pixels in the list.
func (l *PixelList) Len() int {
	return len(l.pixels)
}

// Pixels returns the underlying slice. Callers must not retain it past the
// next mutating call.
func (l *PixelList) Pixels() []Pixel {
	return l.pixels
}

// Clone returns a deep copy of the list.
func (l *PixelList) Clone() *PixelList {
	out := make([]Pixel, len(l.pixels))
	copy(out, l.pixels)
	return &PixelList{pixels: out}
}

// Centroid is the arithmetic mean of the per-pixel centroids.
func (l *PixelList) Centroid() Coord {
	var c Coord
	for _, p := range l.pixels {
		pc := p.Centroid()
		c.Lat += pc.Lat
		c.Lon += pc.Lon
	}
	n := float64(len(l.pixels))
	if n == 0 {
		return c
	}
	c.Lat /= n
	c.Lon /= n
	return c
}

// BoundingBox is the union of all constituent pixels' bounding boxes.
func (l *PixelList) BoundingBox() geo.BoundingBox {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)

	for _, p := range l.pixels {
		b := p.BoundingBox()
		minLat = math.Min(minLat, b.LL.Lat)
		maxLat = math.Max(maxLat, b.UR.Lat)
		minLon = math.Min(minLon, b.LL.Lon)
		maxLon = math.Max(maxLon, b.UR.Lon)
	}

	return geo.BoundingBox{LL: Coord{Lat: minLat, Lon: minLon}, UR: Coord{Lat: maxLat, Lon: maxLon}}
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// TotalPower sums Power across pixels with a finite value, megawatts.
func (l *PixelList) TotalPower() float64 {
	var sum float64
	for _, p := range l.pixels {
		if finite(p.Power) {
			sum += p.Power
		}
	}
	return sum
}

// TotalArea sums Area across pixels with a finite value, square meters.
func (l *PixelList) TotalArea() float64 {
	var sum float64
	for _, p := range l.pixels {
		if finite(p.Area) {
			sum += p.Area
		}
	}
	return sum
}

// MaximumTemperature is the max Temperature across pixels with a finite
// value, Kelvin. Returns -Inf for an empty or all-non-finite list.
func (l *PixelList) MaximumTemperature() float64 {
	max := math.Inf(-1)
	for _, p := range l.pixels {
		if finite(p.Temperature) && p.Temperature > max {
			max = p.Temperature
		}
	}
	return max
}

// MaximumScanAngle is the max ScanAngle across pixels with a finite value,
// degrees. Returns -Inf for an empty or all-non-finite list.
func (l *PixelList) MaximumScanAngle() float64 {
	max := math.Inf(-1)
	for _, p := range l.pixels {
		if finite(p.ScanAngle) && p.ScanAngle > max {
			max = p.ScanAngle
		}
	}
	return max
}

// AdjacentToOrOverlaps reports whether any pixel in l is adjacent to or
// overlaps any pixel in other, short-circuiting on bounding-box
// disjointness.
func (l *PixelList) AdjacentToOrOverlaps(other *PixelList, eps float64) bool {
	if !l.BoundingBox().Overlap(other.BoundingBox(), eps) {
		return false
	}

	for _, s := range l.pixels {
		for _, o := range other.pixels {
			if s.IsAdjacentToOrOverlaps(o, eps) {
				return true
			}
		}
	}

	return false
}

// MaxMergeEps is the corner-equality tolerance used by MaxMerge, matching
// the original implementation's hard-coded 1e-5.
const MaxMergeEps = 1.0e-5

// MaxMerge updates l in place: for each pixel in other, if a corner-equal
// pixel already exists in l, raise its power/temperature/area to the
// pointwise max and lower its mask/DQF codes to the minimum (lower codes
// indicate better quality); otherwise append a copy. This is the central
// monotonic operation by which a wildfire's area grows.
func (l *PixelList) MaxMerge(other *PixelList) {
	for _, rp := range other.pixels {
		isNew := true
		for i := range l.pixels {
			lp := &l.pixels[i]
			if lp.ApproxEqual(rp, MaxMergeEps) {
				lp.Power = math.Max(lp.Power, rp.Power)
				lp.Temperature = math.Max(lp.Temperature, rp.Temperature)
				lp.Area = math.Max(lp.Area, rp.Area)
				if rp.MaskFlag < lp.MaskFlag {
					lp.MaskFlag = rp.MaskFlag
				}
				if rp.DataQualityFlag < lp.DataQualityFlag {
					lp.DataQualityFlag = rp.DataQualityFlag
				}
				isNew = false
				break
			}
		}
		if isNew {
			l.pixels = append(l.pixels, rp)
		}
	}
}

/*-------------------------------------------------------------------------
  Binary format
-------------------------------------------------------------------------*/

// pixelRecordSize is the byte size of one serialized Pixel: 8 f64 corner
// components, 4 f64 scalar fields, 2 i16 codes, 4 bytes of padding.
const pixelRecordSize = 8*8 + 4*8 + 2*2 + 4

// BinarySerialize encodes the list in the native binary format shared with
// the durable store: u64 length, u64 capacity (written equal to length,
// kept only for compatibility with historical files that stored it
// separately), then one fixed-size record per pixel, all in little-endian
// byte order.
func (l *PixelList) BinarySerialize() []byte {
	n := len(l.pixels)
	buf := bytes.NewBuffer(make([]byte, 0, 16+n*pixelRecordSize))

	length := uint64(n)
	binary.Write(buf, binary.LittleEndian, length)
	binary.Write(buf, binary.LittleEndian, length) // historical "capacity" field

	for _, p := range l.pixels {
		writeCoord(buf, p.UL)
		writeCoord(buf, p.LL)
		writeCoord(buf, p.LR)
		writeCoord(buf, p.UR)

		binary.Write(buf, binary.LittleEndian, p.Power)
		binary.Write(buf, binary.LittleEndian, p.Area)
		binary.Write(buf, binary.LittleEndian, p.Temperature)
		binary.Write(buf, binary.LittleEndian, p.ScanAngle)
		binary.Write(buf, binary.LittleEndian, int16(p.MaskFlag))
		binary.Write(buf, binary.LittleEndian, int16(p.DataQualityFlag))
		binary.Write(buf, binary.LittleEndian, uint32(0)) // padding
	}

	return buf.Bytes()
}

func writeCoord(w io.Writer, c Coord) {
	binary.Write(w, binary.LittleEndian, c.Lat)
	binary.Write(w, binary.LittleEndian, c.Lon)
}

func readCoord(r io.Reader) (Coord, error) {
	var c Coord
	if err := binary.Read(r, binary.LittleEndian, &c.Lat); err != nil {
		return c, err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.Lon); err != nil {
		return c, err
	}
	return c, nil
}

// BinaryDeserialize decodes a PixelList encoded by BinarySerialize.
func BinaryDeserialize(r io.Reader) (*PixelList, error) {
	var length, capacity uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("read pixel list length: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &capacity); err != nil {
		return nil, fmt.Errorf("read pixel list capacity: %w", err)
	}

	out := NewPixelListWithCapacity(int(length))
	for i := uint64(0); i < length; i++ {
		p, err := readPixel(r)
		if err != nil {
			return nil, fmt.Errorf("read pixel %d: %w", i, err)
		}
		out.pixels = append(out.pixels, p)
	}

	return out, nil
}

func readPixel(r io.Reader) (Pixel, error) {
	var p Pixel
	var err error

	if p.UL, err = readCoord(r); err != nil {
		return p, err
	}
	if p.LL, err = readCoord(r); err != nil {
		return p, err
	}
	if p.LR, err = readCoord(r); err != nil {
		return p, err
	}
	if p.UR, err = readCoord(r); err != nil {
		return p, err
	}

	for _, dst := range []*float64{&p.Power, &p.Area, &p.Temperature, &p.ScanAngle} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return p, err
		}
	}

	var mask, dqf int16
	if err := binary.Read(r, binary.LittleEndian, &mask); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.LittleEndian, &dqf); err != nil {
		return p, err
	}
	p.MaskFlag = MaskCode(mask)
	p.DataQualityFlag = DataQualityFlagCode(dqf)

	var padding uint32
	if err := binary.Read(r, binary.LittleEndian, &padding); err != nil {
		return p, err
	}

	return p, nil
}
