package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
	"github.com/banshee-data/velocity.report/internal/wildfire/store"
)

// loadActiveFires rehydrates the fires table into in-memory Wildfire
// values for the given satellite, so a restarted run resumes matching
// against fires it already knew about.
func loadActiveFires(firesDB *store.FiresDB, sat satellite.Satellite) ([]*fire.Wildfire, error) {
	rows, err := firesDB.ActiveFires()
	if err != nil {
		return nil, err
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
		w := fire.ReconstructWildfire(
			fire.Code(row.FireID), row.Satellite,
			time.Unix(row.LastObserved, 0).UTC(), area, row.NextChildNum,
		)
		fires = append(fires, w)
	}
	return fires, nil
}
