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

func square(lat, lon, power float64) *pixel.PixelList {
	pl := pixel.NewPixelList()
	pl.Push(pixel.Pixel{
		UL:    geo.Coord{Lat: lat + 1, Lon: lon},
		LL:    geo.Coord{Lat: lat, Lon: lon},
		LR:    geo.Coord{Lat: lat, Lon: lon + 1},
		UR:    geo.Coord{Lat: lat + 1, Lon: lon + 1},
		Power: power,
	})
	return pl
}

func TestRunIngestsClustersIntoFires(t *testing.T) {
	dir := t.TempDir()
	clustersPath := filepath.Join(dir, "clusters.db")
	firesPath := filepath.Join(dir, "fires.db")

	clustersDB, err := store.OpenClustersDB(clustersPath)
	if err != nil {
		t.Fatalf("OpenClustersDB: %v", err)
	}
	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	list := cluster.NewList(satellite.G16, satellite.Conus, start, start.Add(10*time.Minute),
		[]cluster.Cluster{cluster.NewCluster(500, 0, 0, 0, square(45, -120, 500))})
	if _, err := clustersDB.InsertList(list); err != nil {
		t.Fatalf("InsertList: %v", err)
	}
	if err := clustersDB.Close(); err != nil {
		t.Fatalf("close clusters db: %v", err)
	}

	if err := run(clustersPath, firesPath, "G16", "FDCC", "", "", "", "", true); err != nil {
		t.Fatalf("run: %v", err)
	}

	firesDB, err := store.OpenFiresDB(firesPath)
	if err != nil {
		t.Fatalf("OpenFiresDB: %v", err)
	}
	defer firesDB.Close()

	active, err := firesDB.ActiveFires()
	if err != nil {
		t.Fatalf("ActiveFires: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active fire, got %d", len(active))
	}
}

func TestRunStreamsEventsWhenPublishAddrSet(t *testing.T) {
	dir := t.TempDir()
	clustersPath := filepath.Join(dir, "clusters.db")
	firesPath := filepath.Join(dir, "fires.db")

	clustersDB, err := store.OpenClustersDB(clustersPath)
	if err != nil {
		t.Fatalf("OpenClustersDB: %v", err)
	}
	start := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	list := cluster.NewList(satellite.G16, satellite.Conus, start, start.Add(10*time.Minute),
		[]cluster.Cluster{cluster.NewCluster(500, 0, 0, 0, square(45, -120, 500))})
	if _, err := clustersDB.InsertList(list); err != nil {
		t.Fatalf("InsertList: %v", err)
	}
	if err := clustersDB.Close(); err != nil {
		t.Fatalf("close clusters db: %v", err)
	}

	if err := run(clustersPath, firesPath, "G16", "FDCC", "", "", "", "127.0.0.1:0", true); err != nil {
		t.Fatalf("run: %v", err)
	}

	firesDB, err := store.OpenFiresDB(firesPath)
	if err != nil {
		t.Fatalf("OpenFiresDB: %v", err)
	}
	defer firesDB.Close()

	active, err := firesDB.ActiveFires()
	if err != nil {
		t.Fatalf("ActiveFires: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active fire, got %d", len(active))
	}
}

func TestRunRejectsInvalidBoundingBox(t *testing.T) {
	dir := t.TempDir()
	err := run(filepath.Join(dir, "clusters.db"), filepath.Join(dir, "fires.db"),
		"G16", "FDCC", "95,-120,45,-100", "", "", "", false)
	if err == nil {
		t.Fatal("expected error for out-of-range bounding box, got nil")
	}
}

func TestRunRejectsUnknownSatellite(t *testing.T) {
	dir := t.TempDir()
	err := run(filepath.Join(dir, "clusters.db"), filepath.Join(dir, "fires.db"),
		"G99", "FDCC", "", "", "", "", false)
	if err == nil {
		t.Fatal("expected error for unknown satellite, got nil")
	}
}
