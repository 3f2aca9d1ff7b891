package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pipeline"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
	"github.com/banshee-data/velocity.report/internal/wildfire/store"
)

// dbReader implements pipeline.Reader over a ClustersDB: it loads every
// cluster row for one satellite/sector newer than a watermark, keeps only
// rows whose bounding box overlaps the configured region, and regroups
// them into time-steps by shared scan time.
type dbReader struct {
	clusters  *store.ClustersDB
	satellite satellite.Satellite
	sector    satellite.Sector
	after     time.Time
	box       geo.BoundingBox
}

func (r *dbReader) Run(ctx context.Context, out chan<- pipeline.ClusterMessage) error {
	records, err := r.clusters.RecordsSince(r.satellite, r.sector, r.after)
	if err != nil {
		return err
	}

	var kept []fire.ClusterRecord
	for _, rec := range records {
		if rec.Cluster.BoundingBox().Overlap(r.box, 0) {
			kept = append(kept, rec)
		}
	}
	log.Printf("wildfire: reader kept %d/%d records for %s %s after %s within %s",
		len(kept), len(records), r.satellite, r.sector, r.after.Format(time.RFC3339), r.box)

	var step []fire.ClusterRecord
	flush := func() error {
		if len(step) == 0 {
			return nil
		}
		traceID := uuid.NewString()
		select {
		case out <- pipeline.StartTimeStep{ScanTime: step[0].ScanStart, TraceID: traceID}:
		case <-ctx.Done():
			return ctx.Err()
		}
		for _, rec := range step {
			select {
			case out <- pipeline.ClusterRecordMessage{Record: rec}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		select {
		case out <- pipeline.FinishTimeStep{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		step = step[:0]
		return nil
	}

	for _, rec := range kept {
		if len(step) > 0 && !rec.ScanStart.Equal(step[0].ScanStart) {
			if err := flush(); err != nil {
				return err
			}
		}
		step = append(step, rec)
	}
	return flush()
}
