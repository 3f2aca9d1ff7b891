package fire

import "time"

// List holds the active wildfires for one satellite and drives the
// matching/split/merge/stale-eviction state machine described at package
// level. Archived fires (drained for staleness) and merged-away fires
// (absorbed by a larger one) are kept separately for the caller to persist
// or inspect.
//
// A Wildfire's implicit states are: candidate-collecting (between
// ProcessTimeStep's match pass and its resolve pass), updated (absorbed its
// sole candidate), spawning (replaced by one child per candidate on a
// split), merged-away (absorbed by a larger overlapping fire), drained-stale
// (evicted by the stale policy), and drained-final (evicted at shutdown).
type List struct {
	codeGen    *CodeGenerator
	fires      []*Wildfire
	archive    []*Wildfire
	mergedAway []*Wildfire
	lastPurge  time.Time
}

// NewList starts an empty active-fire list backed by codeGen for assigning
// root fire codes to newly discovered wildfires.
func NewList(codeGen *CodeGenerator) *List {
	return &List{codeGen: codeGen}
}

// Seed populates the active-fire list from previously persisted wildfires
// (see ReconstructWildfire), so a restarted pipeline resumes matching
// against fires it already knew about instead of starting empty.
func (l *List) Seed(fires []*Wildfire) {
	l.fires = append(l.fires, fires...)
}

func (l *List) Active() []*Wildfire     { return l.fires }
func (l *List) Archived() []*Wildfire   { return l.archive }
func (l *List) MergedAway() []*Wildfire { return l.mergedAway }

// ProcessTimeStep runs one scan-time group of cluster records through the
// association engine and returns the fires newly created this step
// (including split children) and the cluster-to-fire associations to
// persist. newFires always precedes the associations that reference it, so
// a caller emitting AddFire/AddAssociation messages in the returned order
// preserves per-fire causality.
//
// An error (always ErrFireCodeCounterExhausted) means the root-code counter
// ran out mid-step: the fires and associations already resolved up to that
// point are still returned and are safe to persist, but the caller must
// treat the engine as unable to make further progress.
func (l *List) ProcessTimeStep(scanTime time.Time, records []ClusterRecord) (newFires []*Wildfire, associations []Association, err error) {
	l.maybePurge(scanTime)

	for _, rec := range records {
		if fire := l.matchActive(scanTime, rec); fire != nil {
			fire.candidates = append(fire.candidates, rec)
			continue
		}

		code, err := l.codeGen.NextRootCode()
		if err != nil {
			return newFires, associations, err
		}
		w := newWildfireFromRecord(code, rec)
		l.fires = append(l.fires, w)
		newFires = append(newFires, w)
		associations = append(associations, Association{ClusterRowID: rec.RowID, FireCode: code})
	}

	// Resolve candidates against only the fires that existed before this
	// time-step's matching pass; freshly created fires above have no
	// candidates of their own yet, and split children are appended during
	// this very loop.
	n := len(l.fires)
	for i := 0; i < n; i++ {
		w := l.fires[i]
		switch len(w.candidates) {
		case 0:
			// no match this step
		case 1:
			rec := w.candidates[0]
			w.update(rec)
			associations = append(associations, Association{ClusterRowID: rec.RowID, FireCode: w.code})
		default:
			for _, rec := range w.candidates {
				childCode := w.code.Child(w.nextChildNum)
				w.nextChildNum++
				child := newWildfireFromRecord(childCode, rec)
				l.fires = append(l.fires, child)
				newFires = append(newFires, child)
				associations = append(associations, Association{ClusterRowID: rec.RowID, FireCode: childCode})
			}
		}
		w.candidates = nil
	}

	return newFires, associations, nil
}

// matchActive returns the first active fire, scanning from the tail of the
// list (where new fires are appended), whose area is adjacent to or
// overlaps rec's cluster. The scan stops at the first fire whose last
// observation is at or before scanTime minus PurgeHorizon; fires before it
// in the list are not examined.
func (l *List) matchActive(scanTime time.Time, rec ClusterRecord) *Wildfire {
	horizon := scanTime.Add(-PurgeHorizon)
	for i := len(l.fires) - 1; i >= 0; i-- {
		w := l.fires[i]
		if !w.lastObserved.After(horizon) {
			break
		}
		if w.area.AdjacentToOrOverlaps(rec.Cluster.Pixels(), MatchEps) {
			return w
		}
	}
	return nil
}

func (l *List) maybePurge(scanTime time.Time) {
	if l.lastPurge.IsZero() {
		l.lastPurge = scanTime
	}
	if scanTime.Sub(l.lastPurge) <= PurgeInterval {
		return
	}
	horizon := scanTime.Add(-PurgeHorizon)
	for i := 0; i < len(l.fires); i++ {
		if l.fires[i].lastObserved.After(horizon) {
			continue
		}
		l.archive = append(l.archive, l.fires[i])
		l.fires[i] = l.fires[len(l.fires)-1]
		l.fires = l.fires[:len(l.fires)-1]
		i--
	}
	l.DrainStale(scanTime)
	l.lastPurge = scanTime
}

// MergeFires detects wildfires whose pixel lists are adjacent-or-overlapping
// and merges them, keeping the larger in place and moving the absorbed fire
// to MergedAway. A merger restarts the inner scan at the merged survivor's
// index so transitive mergers (A-B-C all overlapping pairwise) are caught
// in one pass.
func (l *List) MergeFires() {
	for i := 0; i < len(l.fires); i++ {
		for j := i + 1; j < len(l.fires); j++ {
			if !l.fires[i].area.AdjacentToOrOverlaps(l.fires[j].area, MatchEps) {
				continue
			}

			absorbed := mergeInto(l.fires[i], l.fires[j])
			l.mergedAway = append(l.mergedAway, absorbed)

			l.fires[j] = l.fires[len(l.fires)-1]
			l.fires = l.fires[:len(l.fires)-1]

			j = i // becomes i+1 again after the loop increment
		}
	}
}

// DrainStale moves every active fire the stale policy considers burned out
// relative to currentTime into the archive.
func (l *List) DrainStale(currentTime time.Time) {
	for i := 0; i < len(l.fires); i++ {
		if !l.fires[i].isStale(currentTime) {
			continue
		}

		l.archive = append(l.archive, l.fires[i])
		l.fires[i] = l.fires[len(l.fires)-1]
		l.fires = l.fires[:len(l.fires)-1]
		i--
	}
}

// DrainAll moves every remaining active fire to the archive, for pipeline
// shutdown.
func (l *List) DrainAll() {
	l.archive = append(l.archive, l.fires...)
	l.fires = nil
}
