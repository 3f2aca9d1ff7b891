// Package wildfirecli holds the small argument-parsing and validation
// helpers shared by the wildfire command-line tools: bounding box and
// scan-time parsing, and the env-var-with-flag-default idiom used
// throughout this repo's other cmd/ entry points.
package wildfirecli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
)

// ScanTimeLayout is the CLI's start/end time format: "YYYY-MM-DD-HH".
const ScanTimeLayout = "2006-01-02-15"

// EnvOrDefault returns os.Getenv(key) if set and non-empty, else def. It
// mirrors the os.Getenv-as-flag-default idiom used across this repo's
// other cmd/ tools.
func EnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ParseScanTime parses a CLI start/end time argument in ScanTimeLayout,
// interpreted as UTC.
func ParseScanTime(s string) (time.Time, error) {
	t, err := time.Parse(ScanTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("wildfirecli: invalid scan time %q, want YYYY-MM-DD-HH: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseBoundingBox parses "min_lat,min_lon,max_lat,max_lon" and validates
// min < max on each axis and that both corners lie within +/-90 latitude
// and +/-180 longitude. An empty string returns the global box (the whole
// valid lat/lon domain), the CLI surface's default.
func ParseBoundingBox(s string) (geo.BoundingBox, error) {
	if strings.TrimSpace(s) == "" {
		return geo.BoundingBox{
			LL: geo.Coord{Lat: -90, Lon: -180},
			UR: geo.Coord{Lat: 90, Lon: 180},
		}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("wildfirecli: bounding box %q must have 4 comma-separated values, got %d", s, len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, fmt.Errorf("wildfirecli: bounding box %q: value %q is not a number: %w", s, p, err)
		}
		vals[i] = v
	}
	minLat, minLon, maxLat, maxLon := vals[0], vals[1], vals[2], vals[3]

	if minLat >= maxLat {
		return geo.BoundingBox{}, fmt.Errorf("wildfirecli: bounding box %q: min_lat %v must be less than max_lat %v", s, minLat, maxLat)
	}
	if minLon >= maxLon {
		return geo.BoundingBox{}, fmt.Errorf("wildfirecli: bounding box %q: min_lon %v must be less than max_lon %v", s, minLon, maxLon)
	}
	for _, lat := range []float64{minLat, maxLat} {
		if lat < -90 || lat > 90 {
			return geo.BoundingBox{}, fmt.Errorf("wildfirecli: bounding box %q: latitude %v out of range [-90, 90]", s, lat)
		}
	}
	for _, lon := range []float64{minLon, maxLon} {
		if lon < -180 || lon > 180 {
			return geo.BoundingBox{}, fmt.Errorf("wildfirecli: bounding box %q: longitude %v out of range [-180, 180]", s, lon)
		}
	}

	return geo.BoundingBox{
		LL: geo.Coord{Lat: minLat, Lon: minLon},
		UR: geo.Coord{Lat: maxLat, Lon: maxLon},
	}, nil
}
