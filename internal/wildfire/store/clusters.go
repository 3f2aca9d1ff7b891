package store

import (
	"bytes"
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
)

// ClustersDB is the durable store for per-scan cluster records: the
// reader's row source and the association engine's persisted input.
type ClustersDB struct {
	db *sql.DB
}

// OpenClustersDB opens (creating and migrating if necessary) the clusters
// database at path.
func OpenClustersDB(path string) (*ClustersDB, error) {
	db, err := open(path, clustersMigrations, "migrations/clusters")
	if err != nil {
		return nil, err
	}
	return &ClustersDB{db: db}, nil
}

// Close closes the underlying database handle.
func (c *ClustersDB) Close() error { return c.db.Close() }

// SQL returns the underlying database handle, for read-only tooling
// (e.g. a tailsql debug browser) that needs to run arbitrary queries
// rather than go through this package's typed accessors.
func (c *ClustersDB) SQL() *sql.DB { return c.db }

// InsertList persists every cluster in list, tagged with its shared
// satellite/sector/scan-time metadata, and returns the assigned rowids in
// the same order as list.Clusters().
func (c *ClustersDB) InsertList(list *cluster.List) ([]int64, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("wildfire store: begin cluster insert: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO clusters (
			satellite, sector, scan_mid_point,
			centroid_lat, centroid_lon, power, num_points, perimeter
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("wildfire store: prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	midPoint := list.Start.Add(list.End.Sub(list.Start) / 2).Unix()

	rowIDs := make([]int64, 0, list.Len())
	for _, cl := range list.Clusters() {
		centroid := cl.Centroid()
		res, err := stmt.Exec(
			list.Satellite.String(), list.Sector.String(), midPoint,
			centroid.Lat, centroid.Lon, cl.TotalPower(), cl.PixelCount(),
			cl.Pixels().BinarySerialize(),
		)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("wildfire store: insert cluster: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("wildfire store: cluster insert id: %w", err)
		}
		rowIDs = append(rowIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("wildfire store: commit cluster insert: %w", err)
	}
	return rowIDs, nil
}

// LatestScan returns the most recent scan_mid_point recorded for the given
// satellite/sector, and whether any row exists yet. Re-runs use this as
// the watermark that makes ingestion idempotent: files at or before this
// time have already been processed.
func (c *ClustersDB) LatestScan(sat satellite.Satellite, sector satellite.Sector) (time.Time, bool, error) {
	var unixSeconds sql.NullInt64
	err := c.db.QueryRow(
		`SELECT MAX(scan_mid_point) FROM clusters WHERE satellite = ? AND sector = ?`,
		sat.String(), sector.String(),
	).Scan(&unixSeconds)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("wildfire store: latest scan query: %w", err)
	}
	if !unixSeconds.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(unixSeconds.Int64, 0).UTC(), true, nil
}

// CountOlderThan reports how many cluster rows have a scan time at or
// before cutoff, for a dry-run prune report.
func (c *ClustersDB) CountOlderThan(cutoff time.Time) (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM clusters WHERE scan_mid_point <= ?`, cutoff.Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("wildfire store: count old clusters: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes every cluster row with a scan time at or before
// cutoff and returns the number of rows removed.
func (c *ClustersDB) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM clusters WHERE scan_mid_point <= ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("wildfire store: delete old clusters: %w", err)
	}
	return res.RowsAffected()
}

// PowerReading is one cluster row's scan time and total power, used to
// chart a single fire's growth across the scans associated with it.
type PowerReading struct {
	ScanTime time.Time
	Power    float64
}

// RecordsByRowID looks up the scan time and power of each given cluster
// rowid, in no particular order. Missing rowids are silently skipped.
func (c *ClustersDB) RecordsByRowID(rowIDs []int64) ([]PowerReading, error) {
	var readings []PowerReading
	for _, id := range rowIDs {
		var scanMid int64
		var power float64
		err := c.db.QueryRow(`SELECT scan_mid_point, power FROM clusters WHERE rowid = ?`, id).Scan(&scanMid, &power)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("wildfire store: read cluster row %d: %w", id, err)
		}
		readings = append(readings, PowerReading{ScanTime: time.Unix(scanMid, 0).UTC(), Power: power})
	}
	return readings, nil
}

// RecordsSince streams every cluster row for sat/sector with a later scan
// time than after, grouped in ascending scan-time order, exactly the
// order the pipeline's reader stage needs.
func (c *ClustersDB) RecordsSince(sat satellite.Satellite, sector satellite.Sector, after time.Time) ([]fire.ClusterRecord, error) {
	rows, err := c.db.Query(`
		SELECT rowid, scan_mid_point, power, num_points, perimeter
		FROM clusters
		WHERE satellite = ? AND sector = ? AND scan_mid_point > ?
		ORDER BY scan_mid_point ASC, rowid ASC
	`, sat.String(), sector.String(), after.Unix())
	if err != nil {
		return nil, fmt.Errorf("wildfire store: records-since query: %w", err)
	}
	defer rows.Close()

	var records []fire.ClusterRecord
	for rows.Next() {
		var rowID, scanMid int64
		var power float64
		var numPoints int
		var perimeter []byte
		if err := rows.Scan(&rowID, &scanMid, &power, &numPoints, &perimeter); err != nil {
			return nil, fmt.Errorf("wildfire store: scan cluster row: %w", err)
		}

		pl, err := pixel.BinaryDeserialize(bytes.NewReader(perimeter))
		if err != nil {
			return nil, fmt.Errorf("wildfire store: decode perimeter for cluster %d: %w", rowID, err)
		}

		scanTime := time.Unix(scanMid, 0).UTC()
		records = append(records, fire.ClusterRecord{
			RowID:     rowID,
			Satellite: sat,
			Sector:    sector,
			ScanStart: scanTime,
			ScanEnd:   scanTime,
			Cluster:   cluster.NewCluster(power, 0, 0, 0, pl),
		})
	}
	return records, rows.Err()
}
