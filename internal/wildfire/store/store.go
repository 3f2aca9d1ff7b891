// Package store is the durable-store adapter: a transactional batched
// sink for clusters, fires, and cluster<->fire associations, backed by
// two independent SQLite databases (clusters and fires can live on
// different disks and are opened, migrated, and queried separately).
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/clusters/*.sql
var clustersMigrations embed.FS

//go:embed migrations/fires/*.sql
var firesMigrations embed.FS

// applyPragmas sets the SQLite PRAGMAs the pipeline's batched writer
// depends on: WAL lets a reader query while the writer holds a batch
// open, and busy_timeout absorbs the brief lock contention between the
// two.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("wildfire store: %q: %w", p, err)
		}
	}
	return nil
}

func migrateUp(db *sql.DB, migrations embed.FS, subdir string) error {
	sourceFS, err := fs.Sub(migrations, subdir)
	if err != nil {
		return fmt.Errorf("wildfire store: sub-filesystem for %q: %w", subdir, err)
	}
	sourceDriver, err := iofs.New(sourceFS, ".")
	if err != nil {
		return fmt.Errorf("wildfire store: iofs source driver: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("wildfire store: sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("wildfire store: migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	// Note: m.Close() is not called here — the sqlite driver's Close()
	// would close the *sql.DB underneath us, which the caller still owns.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("wildfire store: migration up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { log.Printf("[wildfire-store] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

func open(path string, migrations embed.FS, subdir string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("wildfire store: open %s: %w", path, err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateUp(db, migrations, subdir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
