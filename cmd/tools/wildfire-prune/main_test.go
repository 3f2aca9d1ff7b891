package main

import (
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

func TestRunRejectsNonPositiveHorizon(t *testing.T) {
	dir := t.TempDir()
	err := run(filepath.Join(dir, "c.db"), filepath.Join(dir, "f.db"), 0, false, false)
	if err == nil {
		t.Fatal("expected error for non-positive horizon, got nil")
	}
}

func TestRunDryRunDoesNotDelete(t *testing.T) {
	dir := t.TempDir()
	clustersPath := filepath.Join(dir, "clusters.db")
	firesPath := filepath.Join(dir, "fires.db")

	clustersDB, err := store.OpenClustersDB(clustersPath)
	if err != nil {
		t.Fatalf("OpenClustersDB: %v", err)
	}
	old := time.Now().UTC().AddDate(0, 0, -60)
	list := cluster.NewList(satellite.G16, satellite.Conus, old, old.Add(10*time.Minute),
		[]cluster.Cluster{cluster.NewCluster(100, 0, 0, 0, square(45, -120))})
	if _, err := clustersDB.InsertList(list); err != nil {
		t.Fatalf("InsertList: %v", err)
	}
	clustersDB.Close()

	firesDB, err := store.OpenFiresDB(firesPath)
	if err != nil {
		t.Fatalf("OpenFiresDB: %v", err)
	}
	firesDB.Close()

	if err := run(clustersPath, firesPath, 21, false, true); err != nil {
		t.Fatalf("run: %v", err)
	}

	clustersDB, err = store.OpenClustersDB(clustersPath)
	if err != nil {
		t.Fatalf("reopen ClustersDB: %v", err)
	}
	defer clustersDB.Close()
	count, err := clustersDB.CountOlderThan(time.Now().UTC())
	if err != nil {
		t.Fatalf("CountOlderThan: %v", err)
	}
	if count != 1 {
		t.Errorf("dry run deleted rows: count = %d, want 1", count)
	}
}

func TestRunExecuteDeletesOldRows(t *testing.T) {
	dir := t.TempDir()
	clustersPath := filepath.Join(dir, "clusters.db")
	firesPath := filepath.Join(dir, "fires.db")

	clustersDB, err := store.OpenClustersDB(clustersPath)
	if err != nil {
		t.Fatalf("OpenClustersDB: %v", err)
	}
	old := time.Now().UTC().AddDate(0, 0, -60)
	list := cluster.NewList(satellite.G16, satellite.Conus, old, old.Add(10*time.Minute),
		[]cluster.Cluster{cluster.NewCluster(100, 0, 0, 0, square(45, -120))})
	if _, err := clustersDB.InsertList(list); err != nil {
		t.Fatalf("InsertList: %v", err)
	}
	clustersDB.Close()

	firesDB, err := store.OpenFiresDB(firesPath)
	if err != nil {
		t.Fatalf("OpenFiresDB: %v", err)
	}
	firesDB.Close()

	if err := run(clustersPath, firesPath, 21, true, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	clustersDB, err = store.OpenClustersDB(clustersPath)
	if err != nil {
		t.Fatalf("reopen ClustersDB: %v", err)
	}
	defer clustersDB.Close()
	count, err := clustersDB.CountOlderThan(time.Now().UTC())
	if err != nil {
		t.Fatalf("CountOlderThan: %v", err)
	}
	if count != 0 {
		t.Errorf("execute did not delete rows: count = %d, want 0", count)
	}
}
