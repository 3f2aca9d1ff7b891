// Package fire implements the wildfire association engine: it threads a
// scan-time-ordered stream of clusters into temporally connected Wildfire
// entities, handling matching, splits, merges, and stale eviction.
package fire

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
)

// MatchEps is the adjacency/overlap tolerance used both for matching a
// cluster to an active fire and for detecting mergeable fires.
const MatchEps = 1.0e-5

// PurgeHorizon is how far back from the current scan time a fire's last
// observation must be before it's eligible for the periodic purge.
const PurgeHorizon = 21 * 24 * time.Hour

// PurgeInterval bounds how often the periodic purge runs: it fires at the
// start of the first time-step whose scan time is more than this long past
// the last purge.
const PurgeInterval = 24 * time.Hour

// staleFloor and staleAbsolute implement the stale policy: a fire that's
// been quiet for less than staleFloor is never stale (give it a chance to
// flare back up); quiet for more than staleAbsolute, it always is; in
// between, it's stale once the quiet gap exceeds how long it was ever seen
// burning.
const (
	staleFloor    = 4 * 24 * time.Hour
	staleAbsolute = 30 * 24 * time.Hour
)

// ClusterRecord is one persisted cluster row as the association engine
// consumes it: the cluster's aggregates and pixels, plus the scan metadata
// and row identity needed to record the eventual association.
type ClusterRecord struct {
	RowID     int64
	Satellite satellite.Satellite
	Sector    satellite.Sector
	ScanStart time.Time
	ScanEnd   time.Time
	Cluster   cluster.Cluster
}

// Association links one persisted cluster row to the fire it was matched
// or assigned to.
type Association struct {
	ClusterRowID int64
	FireCode     Code
}

// Wildfire is a temporally connected sequence of clusters that share
// spatial extent across consecutive scans.
type Wildfire struct {
	code            Code
	satellite       satellite.Satellite
	firstObserved   time.Time
	lastObserved    time.Time
	centroid        geo.Coord
	maxPower        float64
	maxTemperature  float64
	area            *pixel.PixelList
	nextChildNum    uint32
	candidates      []ClusterRecord
}

func newWildfireFromRecord(code Code, rec ClusterRecord) *Wildfire {
	area := rec.Cluster.Pixels().Clone()
	return &Wildfire{
		code:           code,
		satellite:      rec.Satellite,
		firstObserved:  rec.ScanStart,
		lastObserved:   rec.ScanEnd,
		centroid:       area.Centroid(),
		maxPower:       rec.Cluster.TotalPower(),
		maxTemperature: rec.Cluster.MaxTemperature(),
		area:           area,
		nextChildNum:   1,
	}
}

// ReconstructWildfire rebuilds a Wildfire from its persisted fields: the
// durable store's row shape (code, satellite, last observation, area,
// next child counter) rather than the live in-memory fields a fresh
// observation carries. firstObserved is set equal to lastObserved since
// the stores don't persist the original first-seen time, and maxPower is
// approximated as the reconstructed area's total power (the stores don't
// carry the historical per-step peak either) — both only affect
// Duration()/Summary() cosmetics for fires reloaded across a restart, not
// matching or merge behavior, which depend only on area.
func ReconstructWildfire(code Code, sat satellite.Satellite, lastObserved time.Time, area *pixel.PixelList, nextChildNum uint32) *Wildfire {
	return &Wildfire{
		code:           code,
		satellite:      sat,
		firstObserved:  lastObserved,
		lastObserved:   lastObserved,
		centroid:       area.Centroid(),
		maxPower:       area.TotalPower(),
		maxTemperature: area.MaximumTemperature(),
		area:           area,
		nextChildNum:   nextChildNum,
	}
}

func (w *Wildfire) Code() Code                  { return w.code }
func (w *Wildfire) Satellite() satellite.Satellite { return w.satellite }
func (w *Wildfire) FirstObserved() time.Time    { return w.firstObserved }
func (w *Wildfire) LastObserved() time.Time     { return w.lastObserved }
func (w *Wildfire) Centroid() geo.Coord         { return w.centroid }
func (w *Wildfire) MaxPower() float64           { return w.maxPower }
func (w *Wildfire) MaxTemperature() float64     { return w.maxTemperature }
func (w *Wildfire) Area() *pixel.PixelList      { return w.area }

// NextChildNum is the child-code counter this fire will hand out the next
// time it splits. Persisted alongside the fire so a restarted pipeline
// resumes numbering where it left off.
func (w *Wildfire) NextChildNum() uint32 { return w.nextChildNum }

// Duration is the time between first and last observation.
func (w *Wildfire) Duration() time.Duration {
	return w.lastObserved.Sub(w.firstObserved)
}

// Summary renders a human-readable multi-line report, grounded on the
// original's terminal dump of a wildfire's vital statistics.
func (w *Wildfire) Summary() string {
	d := w.Duration()
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) - days*24

	return fmt.Sprintf(
		"~~ Wildfire ~~\n"+
			"                   id: %s\n"+
			"            satellite: %s\n"+
			"       first observed: %s\n"+
			"        last observed: %s\n"+
			"             duration: %d days %d hours\n"+
			"          centered at: (%10.6f, %11.6f)\n"+
			"           num pixels: %d\n"+
			"   maximum scan angle: %7.0f degrees\n"+
			"        maximum power: %7.0f MW\n"+
			"  maximum temperature: %7.0f K\n",
		w.code, w.satellite,
		w.firstObserved.UTC().Format("2006-01-02 15:04:05Z"),
		w.lastObserved.UTC().Format("2006-01-02 15:04:05Z"),
		days, hours,
		w.centroid.Lat, w.centroid.Lon,
		w.area.Len(),
		w.area.MaximumScanAngle(),
		w.maxPower,
		w.maxTemperature,
	)
}

// update folds one matched cluster record into the fire: it's the
// single-candidate absorb step, max-merging pixels and advancing the
// observed interval and peak readings.
func (w *Wildfire) update(rec ClusterRecord) {
	w.area.MaxMerge(rec.Cluster.Pixels())
	w.centroid = w.area.Centroid()
	w.maxPower = math.Max(w.maxPower, rec.Cluster.TotalPower())
	w.maxTemperature = math.Max(w.maxTemperature, rec.Cluster.MaxTemperature())
	if rec.ScanEnd.After(w.lastObserved) {
		w.lastObserved = rec.ScanEnd
	}
}

func (w *Wildfire) isStale(currentTime time.Time) bool {
	since := currentTime.Sub(w.lastObserved)
	if since < staleFloor {
		return false
	}
	if since > staleAbsolute {
		return true
	}
	return w.Duration() < since
}

// mergeInto absorbs right into left, leaving the larger fire (by pixel
// count) in the left position and returning the smaller, unmodified fire
// for the caller to archive. If right was larger, left and right swap
// roles first so the survivor is always left.
func mergeInto(left, right *Wildfire) *Wildfire {
	if left.area.Len() < right.area.Len() {
		*left, *right = *right, *left
	}

	if right.firstObserved.Before(left.firstObserved) {
		left.firstObserved = right.firstObserved
	}
	if right.lastObserved.After(left.lastObserved) {
		left.lastObserved = right.lastObserved
	}

	left.area.MaxMerge(right.area)
	left.centroid = left.area.Centroid()
	left.maxPower = math.Max(left.maxPower, right.maxPower)
	left.maxTemperature = math.Max(left.maxTemperature, right.maxTemperature)

	return right
}
