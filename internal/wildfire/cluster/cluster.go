// Package cluster groups fire pixels detected in a single satellite image
// into spatially contiguous clusters via an 8-connected-components pass
// over the pixels' integer grid coordinates, and collects the clusters
// derived from one scan alongside the scan's satellite/sector/time metadata.
package cluster

import (
	"math"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
)

// FirePoint is one fire-detected pixel plus its position in the image's
// integer grid, used only during cluster synthesis to decide 8-connected
// adjacency. A grid position of (0, 0) is the synthesis algorithm's
// consumed-point sentinel: a real detection at the image's true origin
// pixel is indistinguishable from "already absorbed" and is silently
// skipped, mirroring the same tradeoff made by the system this is
// grounded on.
type FirePoint struct {
	X, Y  int
	Pixel pixel.Pixel
}

// Cluster is a spatially 8-connected group of fire pixels from one image,
// along with the aggregate totals computed over the subset of pixels that
// reported each quantity.
type Cluster struct {
	power        float64
	area         float64
	maxTemp      float64
	maxScanAngle float64
	pixels       *pixel.PixelList
}

// NewCluster builds a Cluster directly from already-computed aggregates;
// used when reconstructing a Cluster from a persisted record.
func NewCluster(power, area, maxTemp, maxScanAngle float64, pixels *pixel.PixelList) Cluster {
	return Cluster{power: power, area: area, maxTemp: maxTemp, maxScanAngle: maxScanAngle, pixels: pixels}
}

// addFirePoint folds one FirePoint's pixel into the cluster's running
// aggregates. Non-finite (NaN/Inf) readings, meaning the underlying image
// carried no value for that field, don't contribute.
func (c *Cluster) addFirePoint(fp FirePoint) {
	c.pixels.Push(fp.Pixel)

	if !math.IsInf(fp.Pixel.Power, 0) && !math.IsNaN(fp.Pixel.Power) {
		c.power += fp.Pixel.Power
	}
	if !math.IsInf(fp.Pixel.Temperature, 0) && !math.IsNaN(fp.Pixel.Temperature) {
		c.maxTemp = math.Max(c.maxTemp, fp.Pixel.Temperature)
	}
	if !math.IsInf(fp.Pixel.Area, 0) && !math.IsNaN(fp.Pixel.Area) {
		c.area += fp.Pixel.Area
	}
	if !math.IsInf(fp.Pixel.ScanAngle, 0) && !math.IsNaN(fp.Pixel.ScanAngle) {
		c.maxScanAngle = math.Max(c.maxScanAngle, fp.Pixel.ScanAngle)
	}
}

func (c Cluster) TotalPower() float64          { return c.power }
func (c Cluster) TotalArea() float64           { return c.area }
func (c Cluster) MaxTemperature() float64      { return c.maxTemp }
func (c Cluster) MaxScanAngle() float64        { return c.maxScanAngle }
func (c Cluster) PixelCount() int              { return c.pixels.Len() }
func (c Cluster) Pixels() *pixel.PixelList     { return c.pixels }
func (c Cluster) Centroid() geo.Coord          { return c.pixels.Centroid() }
func (c Cluster) BoundingBox() geo.BoundingBox { return c.pixels.BoundingBox() }

// ClustersFromFirePoints groups points into 8-connected-component clusters.
//
// The points slice is consumed in place: each admitted point has its grid
// position zeroed so it's skipped on later outer-loop iterations. Within
// the loop, candidate points are compared against every point already
// admitted into the growing cluster (not just the seed), and the scan of
// the remaining points restarts after every admission, so it converges on
// the full connected component regardless of admission order.
func ClustersFromFirePoints(points []FirePoint) []Cluster {
	clusters := make([]Cluster, 0, 100)
	members := make([]FirePoint, 0, 20)

	for i := range points {
		fp := &points[i]
		if fp.X == 0 && fp.Y == 0 {
			continue
		}

		members = members[:0]
		members = append(members, *fp)
		fp.X, fp.Y = 0, 0

		for j := i + 1; j < len(points); j++ {
			candidate := &points[j]
			if candidate.X == 0 && candidate.Y == 0 {
				continue
			}

			for _, m := range members {
				dx := candidate.X - m.X
				if dx < 0 {
					dx = -dx
				}
				dy := candidate.Y - m.Y
				if dy < 0 {
					dy = -dy
				}

				if dx <= 1 && dy <= 1 {
					members = append(members, *candidate)
					candidate.X, candidate.Y = 0, 0
					j = i // rescan: the new member may link points skipped earlier
					break
				}
			}
		}

		var c Cluster
		c.pixels = pixel.NewPixelList()
		for _, m := range members {
			c.addFirePoint(m)
		}
		clusters = append(clusters, c)
	}

	return clusters
}

// List is a collection of Clusters synthesized from the same scan: they
// share a satellite, sector, and scan start/end time.
type List struct {
	Satellite satellite.Satellite
	Sector    satellite.Sector
	Start     time.Time
	End       time.Time
	clusters  []Cluster
}

// NewList wraps clusters with the scan metadata they share.
func NewList(sat satellite.Satellite, sector satellite.Sector, start, end time.Time, clusters []Cluster) *List {
	return &List{Satellite: sat, Sector: sector, Start: start, End: end, clusters: clusters}
}

func (l *List) Clusters() []Cluster { return l.clusters }
func (l *List) Len() int            { return len(l.clusters) }

func (l *List) TotalPower() float64 {
	sum := 0.0
	for _, c := range l.clusters {
		sum += c.power
	}
	return sum
}

// FilterBox keeps only clusters whose centroid falls within box, removing
// the rest in place. Returns the receiver for chaining.
func (l *List) FilterBox(box geo.BoundingBox) *List {
	return l.Filter(func(c Cluster) bool {
		return box.ContainsCoord(c.Centroid(), 0.0)
	})
}

// FilterScanAngle keeps only clusters whose maximum scan angle is strictly
// below maxScanAngle, removing the rest in place. Returns the receiver for
// chaining.
func (l *List) FilterScanAngle(maxScanAngle float64) *List {
	return l.Filter(func(c Cluster) bool {
		return c.MaxScanAngle() < maxScanAngle
	})
}

// Filter keeps only clusters for which keep returns true, removing the
// rest in place. Returns the receiver for chaining.
func (l *List) Filter(keep func(Cluster) bool) *List {
	kept := l.clusters[:0]
	for _, c := range l.clusters {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	l.clusters = kept
	return l
}
