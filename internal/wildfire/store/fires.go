package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/pipeline"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
)

// compile-time assertion: FiresDB satisfies the pipeline's writer-stage sink
var _ pipeline.Sink = (*FiresDB)(nil)

// nextFireNumKey is the fires_meta row the FireCode counter watermark is
// kept under.
const nextFireNumKey = "next fire num"

// FiresDB is the durable store for wildfires and their cluster
// associations. It also implements pipeline.Sink, so the pipeline's
// writer stage can drive it directly.
type FiresDB struct {
	db *sql.DB
	tx *sql.Tx
}

// OpenFiresDB opens (creating and migrating if necessary) the fires
// database at path.
func OpenFiresDB(path string) (*FiresDB, error) {
	db, err := open(path, firesMigrations, "migrations/fires")
	if err != nil {
		return nil, err
	}
	return &FiresDB{db: db}, nil
}

// Close closes the underlying database handle.
func (f *FiresDB) Close() error { return f.db.Close() }

// SQL returns the underlying database handle, for read-only tooling
// (e.g. a tailsql debug browser) that needs to run arbitrary queries
// rather than go through this package's typed accessors.
func (f *FiresDB) SQL() *sql.DB { return f.db }

// NextFireNum reads the persisted FireCode watermark, defaulting to 1 for
// a fresh database (see fire.NewCodeGenerator).
func (f *FiresDB) NextFireNum() (uint32, error) {
	var value string
	err := f.db.QueryRow(`SELECT item_value FROM fires_meta WHERE item_name = ?`, nextFireNumKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("wildfire store: read next fire num: %w", err)
	}
	var n uint32
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("wildfire store: parse next fire num %q: %w", value, err)
	}
	return n, nil
}

// SaveNextFireNum persists the FireCode counter's watermark. The original
// store wrote this with the invalid "INSERT OR UPDATE"; this upserts it
// properly.
func (f *FiresDB) SaveNextFireNum(n uint32) error {
	_, err := f.db.Exec(`
		INSERT INTO fires_meta (item_name, item_value) VALUES (?, ?)
		ON CONFLICT(item_name) DO UPDATE SET item_value = excluded.item_value
	`, nextFireNumKey, fmt.Sprintf("%d", n))
	if err != nil {
		return fmt.Errorf("wildfire store: save next fire num: %w", err)
	}
	return nil
}

// BeginBatch opens the transaction the writer's current batch will
// accumulate into. Implements pipeline.Sink.
func (f *FiresDB) BeginBatch(ctx context.Context) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wildfire store: begin batch: %w", err)
	}
	f.tx = tx
	return nil
}

// AddFire upserts a wildfire's current state. Implements pipeline.Sink.
func (f *FiresDB) AddFire(ctx context.Context, w *fire.Wildfire) error {
	centroid := w.Centroid()
	_, err := f.tx.ExecContext(ctx, `
		INSERT INTO fires (
			fire_id, satellite, last_observed, origin_lat, origin_lon, perimeter, next_child_num
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fire_id) DO UPDATE SET
			last_observed = excluded.last_observed,
			origin_lat = excluded.origin_lat,
			origin_lon = excluded.origin_lon,
			perimeter = excluded.perimeter,
			next_child_num = excluded.next_child_num
	`,
		w.Code().String(), w.Satellite().String(), w.LastObserved().Unix(),
		centroid.Lat, centroid.Lon, w.Area().BinarySerialize(), w.NextChildNum(),
	)
	if err != nil {
		return fmt.Errorf("wildfire store: upsert fire %s: %w", w.Code(), err)
	}
	return nil
}

// AddAssociation records a cluster row's match to a fire code. Implements
// pipeline.Sink.
func (f *FiresDB) AddAssociation(ctx context.Context, a fire.Association) error {
	_, err := f.tx.ExecContext(ctx, `
		INSERT INTO associations (cluster_row_id, fire_id) VALUES (?, ?)
		ON CONFLICT(cluster_row_id, fire_id) DO NOTHING
	`, a.ClusterRowID, a.FireCode.String())
	if err != nil {
		return fmt.Errorf("wildfire store: insert association (cluster %d, fire %s): %w", a.ClusterRowID, a.FireCode, err)
	}
	return nil
}

// CommitBatch commits the current transaction. Implements pipeline.Sink.
func (f *FiresDB) CommitBatch(ctx context.Context) error {
	if f.tx == nil {
		return nil
	}
	err := f.tx.Commit()
	f.tx = nil
	if err != nil {
		return fmt.Errorf("wildfire store: commit batch: %w", err)
	}
	return nil
}

// CountStaleBefore reports how many fires rows have not been observed
// since before cutoff, for a dry-run prune report.
func (f *FiresDB) CountStaleBefore(cutoff time.Time) (int, error) {
	var n int
	err := f.db.QueryRow(`SELECT COUNT(*) FROM fires WHERE last_observed < ?`, cutoff.Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("wildfire store: count stale fires: %w", err)
	}
	return n, nil
}

// DeleteStaleBefore removes every fires row not observed since before
// cutoff, along with its associations, and returns the number of fires
// removed.
func (f *FiresDB) DeleteStaleBefore(cutoff time.Time) (int64, error) {
	tx, err := f.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("wildfire store: begin prune: %w", err)
	}

	res, err := tx.Exec(`
		DELETE FROM associations WHERE fire_id IN (
			SELECT fire_id FROM fires WHERE last_observed < ?
		)
	`, cutoff.Unix())
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("wildfire store: prune associations: %w", err)
	}

	res, err = tx.Exec(`DELETE FROM fires WHERE last_observed < ?`, cutoff.Unix())
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("wildfire store: prune fires: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("wildfire store: prune fires row count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("wildfire store: commit prune: %w", err)
	}
	return n, nil
}

// AssociationsForFire returns the cluster rowids associated with fireID,
// for joining against the clusters database (e.g. to chart a fire's power
// readings over time).
func (f *FiresDB) AssociationsForFire(fireID string) ([]int64, error) {
	rows, err := f.db.Query(`SELECT cluster_row_id FROM associations WHERE fire_id = ?`, fireID)
	if err != nil {
		return nil, fmt.Errorf("wildfire store: query associations for fire %s: %w", fireID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("wildfire store: scan association row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActiveFireRow is one row of fires as read back from the store, used to
// rehydrate a fire.List across a pipeline restart.
type ActiveFireRow struct {
	FireID       string
	Satellite    satellite.Satellite
	LastObserved int64
	OriginLat    float64
	OriginLon    float64
	Perimeter    []byte
	NextChildNum uint32
}

// ActiveFires returns every row in the fires table, for rehydrating
// in-memory state across a restart.
func (f *FiresDB) ActiveFires() ([]ActiveFireRow, error) {
	rows, err := f.db.Query(`SELECT fire_id, satellite, last_observed, origin_lat, origin_lon, perimeter, next_child_num FROM fires`)
	if err != nil {
		return nil, fmt.Errorf("wildfire store: query fires: %w", err)
	}
	defer rows.Close()

	var out []ActiveFireRow
	for rows.Next() {
		var row ActiveFireRow
		var satTag string
		if err := rows.Scan(&row.FireID, &satTag, &row.LastObserved, &row.OriginLat, &row.OriginLon, &row.Perimeter, &row.NextChildNum); err != nil {
			return nil, fmt.Errorf("wildfire store: scan fire row: %w", err)
		}
		sat, err := satellite.ParseSatellite(satTag)
		if err != nil {
			return nil, fmt.Errorf("wildfire store: fire %s: %w", row.FireID, err)
		}
		row.Satellite = sat
		out = append(out, row)
	}
	return out, rows.Err()
}
