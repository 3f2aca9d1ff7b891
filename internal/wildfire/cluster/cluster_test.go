package cluster

import (
	"testing"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
)

func gridPixel(x, y int) pixel.Pixel {
	lat := float64(x)
	lon := float64(y)
	return pixel.Pixel{
		UL: geo.Coord{Lat: lat + 1, Lon: lon},
		LL: geo.Coord{Lat: lat, Lon: lon},
		LR: geo.Coord{Lat: lat, Lon: lon + 1},
		UR: geo.Coord{Lat: lat + 1, Lon: lon + 1},
	}
}

func fp(x, y int, power float64) FirePoint {
	return FirePoint{X: x, Y: y, Pixel: func() pixel.Pixel {
		p := gridPixel(x, y)
		p.Power = power
		return p
	}()}
}

func TestClustersFromFirePointsSingleComponent(t *testing.T) {
	points := []FirePoint{
		fp(1, 1, 1),
		fp(1, 2, 2),
		fp(2, 2, 4),
	}

	clusters := ClustersFromFirePoints(points)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].PixelCount() != 3 {
		t.Errorf("expected 3 pixels in cluster, got %d", clusters[0].PixelCount())
	}
	if clusters[0].TotalPower() != 7 {
		t.Errorf("expected total power 7, got %v", clusters[0].TotalPower())
	}
}

func TestClustersFromFirePointsTwoComponents(t *testing.T) {
	points := []FirePoint{
		fp(1, 1, 1),
		fp(1, 2, 2),
		fp(50, 50, 5),
	}

	clusters := ClustersFromFirePoints(points)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 disjoint clusters, got %d", len(clusters))
	}

	total := 0
	for _, c := range clusters {
		total += c.PixelCount()
	}
	if total != 3 {
		t.Errorf("expected 3 pixels total across clusters, got %d", total)
	}
}

func TestClustersFromFirePointsSkipsSentinel(t *testing.T) {
	points := []FirePoint{
		fp(0, 0, 99),
		fp(3, 3, 1),
	}

	clusters := ClustersFromFirePoints(points)
	if len(clusters) != 1 {
		t.Fatalf("expected the (0,0) sentinel point to be skipped, got %d clusters", len(clusters))
	}
	if clusters[0].TotalPower() != 1 {
		t.Errorf("expected only the non-sentinel pixel's power, got %v", clusters[0].TotalPower())
	}
}

func TestClustersFromFirePointsDiagonalChaining(t *testing.T) {
	// A diagonal staircase is 8-connected end to end even though no two
	// points share a row or column.
	points := []FirePoint{
		fp(1, 1, 1),
		fp(2, 2, 1),
		fp(3, 3, 1),
		fp(4, 4, 1),
	}

	clusters := ClustersFromFirePoints(points)
	if len(clusters) != 1 {
		t.Fatalf("expected diagonal chain to form 1 cluster, got %d", len(clusters))
	}
	if clusters[0].PixelCount() != 4 {
		t.Errorf("expected 4 pixels, got %d", clusters[0].PixelCount())
	}
}

func TestListFilterBox(t *testing.T) {
	points := []FirePoint{fp(1, 1, 1)}
	near := ClustersFromFirePoints(points)

	points2 := []FirePoint{fp(100, 100, 1)}
	far := ClustersFromFirePoints(points2)

	l := NewList(satellite.G16, satellite.FullDisk, time.Unix(0, 0), time.Unix(0, 0),
		append(near, far...))

	l.FilterBox(geo.BoundingBox{LL: geo.Coord{Lat: 0, Lon: 0}, UR: geo.Coord{Lat: 5, Lon: 5}})

	if l.Len() != 1 {
		t.Fatalf("expected 1 cluster to survive the box filter, got %d", l.Len())
	}
}

func TestListFilterScanAngle(t *testing.T) {
	c1 := Cluster{maxScanAngle: 10, pixels: pixel.NewPixelList()}
	c2 := Cluster{maxScanAngle: 80, pixels: pixel.NewPixelList()}

	l := NewList(satellite.G17, satellite.Conus, time.Unix(0, 0), time.Unix(0, 0), []Cluster{c1, c2})
	l.FilterScanAngle(45)

	if l.Len() != 1 {
		t.Fatalf("expected 1 cluster under the scan-angle threshold, got %d", l.Len())
	}
	if l.Clusters()[0].MaxScanAngle() != 10 {
		t.Errorf("expected the low-angle cluster to survive, got %v", l.Clusters()[0].MaxScanAngle())
	}
}

func TestListTotalPower(t *testing.T) {
	c1 := Cluster{power: 10, pixels: pixel.NewPixelList()}
	c2 := Cluster{power: 5, pixels: pixel.NewPixelList()}
	l := NewList(satellite.G16, satellite.Meso1, time.Unix(0, 0), time.Unix(0, 0), []Cluster{c1, c2})

	if l.TotalPower() != 15 {
		t.Errorf("expected total power 15, got %v", l.TotalPower())
	}
}
