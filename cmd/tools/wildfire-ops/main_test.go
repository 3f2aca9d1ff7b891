package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
	"github.com/banshee-data/velocity.report/internal/wildfire/store"
)

func square(lat, lon float64) *pixel.PixelList {
	pl := pixel.NewPixelList()
	pl.Push(pixel.Pixel{
		UL: geo.Coord{Lat: lat + 1, Lon: lon},
		LL: geo.Coord{Lat: lat, Lon: lon},
		LR: geo.Coord{Lat: lat, Lon: lon + 1},
		UR: geo.Coord{Lat: lat + 1, Lon: lon + 1},
	})
	return pl
}

func TestCollectTableStatsCountsRowsPerDatabase(t *testing.T) {
	dir := t.TempDir()

	clustersDB, err := store.OpenClustersDB(filepath.Join(dir, "clusters.db"))
	if err != nil {
		t.Fatalf("OpenClustersDB: %v", err)
	}
	defer clustersDB.Close()

	start := time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)
	list := cluster.NewList(satellite.G16, satellite.Conus, start, start.Add(10*time.Minute),
		[]cluster.Cluster{cluster.NewCluster(100, 0, 0, 0, square(45, -120))})
	if _, err := clustersDB.InsertList(list); err != nil {
		t.Fatalf("InsertList: %v", err)
	}

	firesDB, err := store.OpenFiresDB(filepath.Join(dir, "fires.db"))
	if err != nil {
		t.Fatalf("OpenFiresDB: %v", err)
	}
	defer firesDB.Close()

	stats, err := collectTableStats(map[string]*sql.DB{
		"clusters": clustersDB.SQL(),
		"fires":    firesDB.SQL(),
	})
	if err != nil {
		t.Fatalf("collectTableStats: %v", err)
	}

	var foundClusters bool
	for _, s := range stats {
		if s.Database == "clusters" && s.Table == "clusters" {
			foundClusters = true
			if s.RowCount != 1 {
				t.Errorf("clusters table row count = %d, want 1", s.RowCount)
			}
		}
	}
	if !foundClusters {
		t.Error("expected a clusters.clusters row count entry")
	}
}
