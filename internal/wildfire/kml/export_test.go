package kml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
)

func square(lat, lon float64) *pixel.PixelList {
	pl := pixel.NewPixelList()
	pl.Push(pixel.Pixel{
		UL:    geo.Coord{Lat: lat + 1, Lon: lon},
		LL:    geo.Coord{Lat: lat, Lon: lon},
		LR:    geo.Coord{Lat: lat, Lon: lon + 1},
		UR:    geo.Coord{Lat: lat + 1, Lon: lon + 1},
		Power: 500,
	})
	return pl
}

func TestWriterHeaderAndFooter(t *testing.T) {
	var buf bytes.Buffer
	kw, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := kw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<kml xmlns=") {
		t.Errorf("missing kml root element: %s", out)
	}
	if !strings.HasSuffix(out, "</Document>\n</kml>\n") {
		t.Errorf("missing closing tags: %s", out)
	}
}

func TestPowerColorRamp(t *testing.T) {
	cases := []struct {
		power float64
		want  string
	}{
		{0, "9900A4FF"},
		{FullRedPower, "990000FF"},
		{MaxPower, "99FF00FF"},
	}
	for _, c := range cases {
		got := powerColor(c.power)
		if got != c.want {
			t.Errorf("powerColor(%v) = %s, want %s", c.power, got, c.want)
		}
	}
}

func TestWritePixelListProducesOneClosedRingPerPixel(t *testing.T) {
	var buf bytes.Buffer
	kw, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	pl := square(45, -120)
	if err := WritePixelList(kw, pl); err != nil {
		t.Fatalf("WritePixelList: %v", err)
	}
	if err := kw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "<Placemark>") != 1 {
		t.Errorf("expected 1 placemark for 1 pixel, got %d", strings.Count(out, "<Placemark>"))
	}
	if strings.Count(out, "<LinearRing>") != 1 {
		t.Errorf("expected 1 linear ring, got %d", strings.Count(out, "<LinearRing>"))
	}
	// The ring must close by repeating the first vertex (UL).
	if !strings.Contains(out, "-120,46,0\n-120,45,0\n-119,45,0\n-119,46,0\n-120,46,0\n") {
		t.Errorf("ring does not close on the first vertex:\n%s", out)
	}
}

func TestWriteClusterListWrapsInNamedFolder(t *testing.T) {
	var buf bytes.Buffer
	kw, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Minute)
	clusters := []cluster.Cluster{cluster.NewCluster(500, 0, 0, 0, square(45, -120))}
	list := cluster.NewList(satellite.G16, satellite.Conus, start, end, clusters)

	if err := WriteClusterList(kw, list); err != nil {
		t.Fatalf("WriteClusterList: %v", err)
	}
	if err := kw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<name>G16 FDCC</name>") {
		t.Errorf("expected folder named after satellite/sector, got:\n%s", out)
	}
	if strings.Count(out, "<TimeSpan>") != 1 {
		t.Errorf("expected 1 TimeSpan for 1 cluster, got %d", strings.Count(out, "<TimeSpan>"))
	}
}

func TestWriteWildfiresOneFolderPerFireList(t *testing.T) {
	var buf bytes.Buffer
	kw, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	gen := fire.NewCodeGenerator(1)
	engine := fire.NewList(gen)
	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	newFires, _, err := engine.ProcessTimeStep(start, []fire.ClusterRecord{
		{RowID: 1, Satellite: satellite.G16, Sector: satellite.Conus, ScanStart: start, ScanEnd: start, Cluster: cluster.NewCluster(500, 0, 0, 0, square(45, -120))},
	})
	if err != nil {
		t.Fatalf("ProcessTimeStep: %v", err)
	}
	if len(newFires) != 1 {
		t.Fatalf("expected 1 new fire, got %d", len(newFires))
	}

	if err := WriteWildfires(kw, newFires); err != nil {
		t.Fatalf("WriteWildfires: %v", err)
	}
	if err := kw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<name>Wildfires</name>") {
		t.Errorf("expected a Wildfires folder, got:\n%s", out)
	}
	if !strings.Contains(out, newFires[0].Code().String()) {
		t.Errorf("expected the fire's code to appear as a placemark name, got:\n%s", out)
	}
}
