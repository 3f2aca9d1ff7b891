// Command wildfire-plot is a debug visualizer. In -mode map it renders the
// bounding boxes and centroids of every active wildfire to a PNG. In -mode
// timeline it renders an HTML line chart of one fire's power across the
// scans associated with it.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
	"github.com/banshee-data/velocity.report/internal/wildfire/store"
	"github.com/banshee-data/velocity.report/internal/wildfirecli"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

func main() {
	var (
		firesDBPath    = flag.String("fires-db", wildfirecli.EnvOrDefault("FIRES_DB", "fires.db"), "path to the fires database (or $FIRES_DB)")
		clustersDBPath = flag.String("clusters-db", wildfirecli.EnvOrDefault("CLUSTER_DB", "clusters.db"), "path to the clusters database (or $CLUSTER_DB); only needed with -mode timeline")
		mode           = flag.String("mode", "map", "what to render: \"map\" (active wildfire boxes and centroids) or \"timeline\" (one fire's power over time)")
		satFlag        = flag.String("satellite", "G16", "satellite tag: G16 or G17; only used with -mode map")
		fireFlag       = flag.String("fire", "", "fire code to chart; required with -mode timeline")
		out            = flag.String("out", "", "output path; defaults to wildfires.png (map) or wildfire-timeline.html (timeline)")
	)
	flag.Parse()

	if err := run(*firesDBPath, *clustersDBPath, *mode, *satFlag, *fireFlag, *out); err != nil {
		log.Fatalf("wildfire-plot: %v", err)
	}
}

func run(firesDBPath, clustersDBPath, mode, satFlag, fireFlag, out string) error {
	switch mode {
	case "map":
		if out == "" {
			out = "wildfires.png"
		}
		sat, err := satellite.ParseSatellite(satFlag)
		if err != nil {
			return err
		}
		return renderMap(firesDBPath, sat, out)
	case "timeline":
		if out == "" {
			out = "wildfire-timeline.html"
		}
		if fireFlag == "" {
			return fmt.Errorf("wildfire-plot: -fire is required with -mode timeline")
		}
		return renderTimeline(firesDBPath, clustersDBPath, fireFlag, out)
	default:
		return fmt.Errorf("wildfire-plot: unknown -mode %q, want \"map\" or \"timeline\"", mode)
	}
}

func loadFires(firesDBPath string, sat satellite.Satellite) ([]*fire.Wildfire, error) {
	firesDB, err := store.OpenFiresDB(firesDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening fires db: %w", err)
	}
	defer firesDB.Close()

	rows, err := firesDB.ActiveFires()
	if err != nil {
		return nil, fmt.Errorf("reading active fires: %w", err)
	}

	var fires []*fire.Wildfire
	for _, row := range rows {
		if row.Satellite != sat {
			continue
		}
		area, err := pixel.BinaryDeserialize(bytes.NewReader(row.Perimeter))
		if err != nil {
			return nil, fmt.Errorf("decoding perimeter for fire %s: %w", row.FireID, err)
		}
		fires = append(fires, fire.ReconstructWildfire(
			fire.Code(row.FireID), row.Satellite,
			time.Unix(row.LastObserved, 0).UTC(), area, row.NextChildNum,
		))
	}
	return fires, nil
}

func renderMap(firesDBPath string, sat satellite.Satellite, out string) error {
	fires, err := loadFires(firesDBPath, sat)
	if err != nil {
		return err
	}
	if len(fires) == 0 {
		return fmt.Errorf("wildfire-plot: no active fires for %s", sat)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Active Wildfires (%s)", sat)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	colors := generateColors(len(fires))

	centroids := make(plotter.XYs, 0, len(fires))
	for i, w := range fires {
		box := w.Area().BoundingBox()
		boxPts := plotter.XYs{
			{X: box.LL.Lon, Y: box.LL.Lat},
			{X: box.UR.Lon, Y: box.LL.Lat},
			{X: box.UR.Lon, Y: box.UR.Lat},
			{X: box.LL.Lon, Y: box.UR.Lat},
			{X: box.LL.Lon, Y: box.LL.Lat},
		}
		boxLine, err := plotter.NewLine(boxPts)
		if err != nil {
			return fmt.Errorf("wildfire-plot: plot box for %s: %w", w.Code(), err)
		}
		boxLine.Color = colors[i]
		boxLine.Width = vg.Points(1)
		p.Add(boxLine)
		p.Legend.Add(w.Code().String(), boxLine)

		c := w.Centroid()
		centroids = append(centroids, plotter.XY{X: c.Lon, Y: c.Lat})
	}

	centroidPts, err := plotter.NewScatter(centroids)
	if err != nil {
		return fmt.Errorf("wildfire-plot: plot centroids: %w", err)
	}
	centroidPts.Shape = draw.CrossGlyph{}
	p.Add(centroidPts)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(14*vg.Inch, 10*vg.Inch, out); err != nil {
		return fmt.Errorf("wildfire-plot: save %s: %w", out, err)
	}
	fmt.Printf("wildfire-plot: wrote %s (%d fires)\n", out, len(fires))
	return nil
}

func renderTimeline(firesDBPath, clustersDBPath, fireFlag, out string) error {
	firesDB, err := store.OpenFiresDB(firesDBPath)
	if err != nil {
		return fmt.Errorf("opening fires db: %w", err)
	}
	defer firesDB.Close()

	rowIDs, err := firesDB.AssociationsForFire(fireFlag)
	if err != nil {
		return err
	}
	if len(rowIDs) == 0 {
		return fmt.Errorf("wildfire-plot: no associations recorded for fire %s", fireFlag)
	}

	clustersDB, err := store.OpenClustersDB(clustersDBPath)
	if err != nil {
		return fmt.Errorf("opening clusters db: %w", err)
	}
	defer clustersDB.Close()

	readings, err := clustersDB.RecordsByRowID(rowIDs)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return fmt.Errorf("wildfire-plot: no cluster rows found for fire %s's associations", fireFlag)
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].ScanTime.Before(readings[j].ScanTime) })

	x := make([]string, 0, len(readings))
	y := make([]opts.LineData, 0, len(readings))
	for _, r := range readings {
		x = append(x, r.ScanTime.Format("2006-01-02 15:04"))
		y = append(y, opts.LineData{Value: r.Power})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Wildfire Power", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Fire %s power over time", fireFlag), Subtitle: fmt.Sprintf("%d scans", len(readings))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Scan time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Power (MW)"}),
	)
	line.SetXAxis(x).AddSeries("power", y, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	page := components.NewPage()
	page.AddCharts(line)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("wildfire-plot: render chart: %w", err)
	}

	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("wildfire-plot: write %s: %w", out, err)
	}
	fmt.Printf("wildfire-plot: wrote %s (%d scans)\n", out, len(readings))
	return nil
}

func generateColors(n int) []color.Color {
	if n == 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hsvToRGB(hue, 0.65, 0.85)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hsvToRGB converts a hue/saturation/value triple (each in [0,1]) to 8-bit
// RGB, used to spread the per-fire legend colors evenly around the wheel.
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}
