// Package satellite holds the small, closed-set tags threaded through
// clusters and wildfires: which spacecraft and which scan sector a
// detection came from.
package satellite

import "fmt"

// Satellite identifies the GOES spacecraft a scan came from.
type Satellite int

const (
	Unknown Satellite = iota
	G16
	G17
)

func (s Satellite) String() string {
	switch s {
	case G16:
		return "G16"
	case G17:
		return "G17"
	default:
		return "UNKNOWN"
	}
}

// ParseSatellite parses the satellite tags NOAA's big-data file names and
// the CLI surface use. Also recognizes the long-form GOES-16/GOES-17 names
// found embedded in some file names.
func ParseSatellite(s string) (Satellite, error) {
	switch s {
	case "G16", "GOES16", "GOES-16":
		return G16, nil
	case "G17", "GOES17", "GOES-17":
		return G17, nil
	default:
		return Unknown, fmt.Errorf("satellite: unrecognized tag %q", s)
	}
}

// Sector identifies the geographic coverage of one scan: full disk, CONUS,
// or one of the two independently steerable mesoscale sectors.
type Sector int

const (
	SectorUnknown Sector = iota
	FullDisk
	Conus
	Meso1
	Meso2
)

func (s Sector) String() string {
	switch s {
	case FullDisk:
		return "FDCF"
	case Conus:
		return "FDCC"
	case Meso1:
		return "FDCM1"
	case Meso2:
		return "FDCM2"
	default:
		return "UNKNOWN"
	}
}

// ParseSector parses the sector tags embedded in NOAA file names
// (FDCF/FDCC/FDCM1/FDCM2) and the CLI surface.
func ParseSector(s string) (Sector, error) {
	switch s {
	case "FDCF":
		return FullDisk, nil
	case "FDCC":
		return Conus, nil
	case "FDCM1":
		return Meso1, nil
	case "FDCM2":
		return Meso2, nil
	default:
		return SectorUnknown, fmt.Errorf("satellite: unrecognized sector tag %q", s)
	}
}
