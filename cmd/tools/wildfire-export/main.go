// Command wildfire-export renders the contents of the fires or clusters
// database to a KML or KMZ file for viewing in Google Earth. The output
// format is chosen by the -out extension (.kml or .kmz).
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/kml"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
	"github.com/banshee-data/velocity.report/internal/wildfire/store"
	"github.com/banshee-data/velocity.report/internal/wildfirecli"
)

func main() {
	var (
		firesDBPath    = flag.String("fires-db", wildfirecli.EnvOrDefault("FIRES_DB", "fires.db"), "path to the fires database (or $FIRES_DB)")
		clustersDBPath = flag.String("clusters-db", wildfirecli.EnvOrDefault("CLUSTER_DB", "clusters.db"), "path to the clusters database (or $CLUSTER_DB); only needed with -mode clusters")
		mode           = flag.String("mode", "fires", "what to export: \"fires\" (active wildfires) or \"clusters\" (one scan's clusters)")
		satFlag        = flag.String("satellite", "G16", "satellite tag: G16 or G17")
		sectorFlag     = flag.String("sector", "FDCC", "sector tag; only used with -mode clusters")
		scanFlag       = flag.String("scan", "", "scan time YYYY-MM-DD-HH; only used with -mode clusters, selects the first scan at or after it")
		out            = flag.String("out", "wildfire.kml", "output path, .kml or .kmz")
	)
	flag.Parse()

	if err := run(*firesDBPath, *clustersDBPath, *mode, *satFlag, *sectorFlag, *scanFlag, *out); err != nil {
		log.Fatalf("wildfire-export: %v", err)
	}
}

func openWriter(out string) (*kml.Writer, func() error, error) {
	if strings.HasSuffix(strings.ToLower(out), ".kmz") {
		return kml.CreateKMZ(out)
	}
	return kml.CreateKML(out)
}

func run(firesDBPath, clustersDBPath, mode, satFlag, sectorFlag, scanFlag, out string) error {
	sat, err := satellite.ParseSatellite(satFlag)
	if err != nil {
		return err
	}

	var sector satellite.Sector
	if mode == "clusters" {
		sector, err = satellite.ParseSector(sectorFlag)
		if err != nil {
			return err
		}
	} else if mode != "fires" {
		return fmt.Errorf("wildfire-export: unknown -mode %q, want \"fires\" or \"clusters\"", mode)
	}

	kw, closeAll, err := openWriter(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}

	if mode == "fires" {
		err = exportFires(kw, firesDBPath, sat)
	} else {
		err = exportClusters(kw, clustersDBPath, sat, sector, scanFlag)
	}
	if err != nil {
		return err
	}

	if err := closeAll(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	fmt.Printf("wildfire-export: wrote %s\n", out)
	return nil
}

func exportFires(kw *kml.Writer, firesDBPath string, sat satellite.Satellite) error {
	firesDB, err := store.OpenFiresDB(firesDBPath)
	if err != nil {
		return fmt.Errorf("opening fires db: %w", err)
	}
	defer firesDB.Close()

	rows, err := firesDB.ActiveFires()
	if err != nil {
		return fmt.Errorf("reading active fires: %w", err)
	}

	var fires []*fire.Wildfire
	for _, row := range rows {
		if row.Satellite != sat {
			continue
		}
		area, err := pixel.BinaryDeserialize(bytes.NewReader(row.Perimeter))
		if err != nil {
			return fmt.Errorf("decoding perimeter for fire %s: %w", row.FireID, err)
		}
		fires = append(fires, fire.ReconstructWildfire(
			fire.Code(row.FireID), row.Satellite,
			time.Unix(row.LastObserved, 0).UTC(), area, row.NextChildNum,
		))
	}

	return kml.WriteWildfires(kw, fires)
}

func exportClusters(kw *kml.Writer, clustersDBPath string, sat satellite.Satellite, sector satellite.Sector, scanFlag string) error {
	clustersDB, err := store.OpenClustersDB(clustersDBPath)
	if err != nil {
		return fmt.Errorf("opening clusters db: %w", err)
	}
	defer clustersDB.Close()

	after := time.Unix(0, 0).UTC()
	if scanFlag != "" {
		t, err := wildfirecli.ParseScanTime(scanFlag)
		if err != nil {
			return err
		}
		after = t.Add(-time.Second)
	}

	records, err := clustersDB.RecordsSince(sat, sector, after)
	if err != nil {
		return fmt.Errorf("reading clusters: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no cluster records found for %s %s at or after %s", sat, sector, after)
	}

	scanTime := records[0].ScanStart
	var clusters []cluster.Cluster
	for _, rec := range records {
		if !rec.ScanStart.Equal(scanTime) {
			break
		}
		clusters = append(clusters, rec.Cluster)
	}

	list := cluster.NewList(sat, sector, scanTime, scanTime, clusters)
	return kml.WriteClusterList(kw, list)
}
