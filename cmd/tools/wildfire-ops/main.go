// Command wildfire-ops is a read-only operator surface: a debug HTTP
// server exposing a tailsql SQL browser over the clusters and fires
// databases, plus a table-size/row-count summary endpoint.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/banshee-data/velocity.report/internal/wildfire/store"
	"github.com/banshee-data/velocity.report/internal/wildfirecli"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

func main() {
	var (
		clustersDBPath = flag.String("clusters-db", wildfirecli.EnvOrDefault("CLUSTER_DB", "clusters.db"), "path to the clusters database (or $CLUSTER_DB)")
		firesDBPath    = flag.String("fires-db", wildfirecli.EnvOrDefault("FIRES_DB", "fires.db"), "path to the fires database (or $FIRES_DB)")
		listenAddr     = flag.String("listen", "localhost:8090", "address to serve the debug endpoints on")
	)
	flag.Parse()

	if err := run(*clustersDBPath, *firesDBPath, *listenAddr); err != nil {
		log.Fatalf("wildfire-ops: %v", err)
	}
}

func run(clustersDBPath, firesDBPath, listenAddr string) error {
	clustersDB, err := store.OpenClustersDB(clustersDBPath)
	if err != nil {
		return fmt.Errorf("opening clusters db: %w", err)
	}
	defer clustersDB.Close()

	firesDB, err := store.OpenFiresDB(firesDBPath)
	if err != nil {
		return fmt.Errorf("opening fires db: %w", err)
	}
	defer firesDB.Close()

	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("creating tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://clusters.db", clustersDB.SQL(), &tailsql.DBOptions{Label: "Clusters DB"})
	tsql.SetDB("sqlite://fires.db", firesDB.SQL(), &tailsql.DBOptions{Label: "Fires DB"})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Row counts for the clusters and fires databases (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := collectTableStats(map[string]*sql.DB{
			"clusters": clustersDB.SQL(),
			"fires":    firesDB.SQL(),
		})
		if err != nil {
			http.Error(w, fmt.Sprintf("collecting table stats: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}))

	log.Printf("wildfire-ops: serving debug endpoints on http://%s/debug/", listenAddr)
	return http.ListenAndServe(listenAddr, mux)
}

// tableStat is one table's row count, tagged with which database it
// came from since this tool spans two separate SQLite files.
type tableStat struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	RowCount int64  `json:"row_count"`
}

func collectTableStats(dbs map[string]*sql.DB) ([]tableStat, error) {
	var stats []tableStat
	for label, db := range dbs {
		rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
		if err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		var tableNames []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning table name: %w", err)
			}
			tableNames = append(tableNames, name)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, name := range tableNames {
			var count int64
			// name comes from sqlite_master, not user input, so this
			// isn't user-controlled SQL; %q applies SQLite identifier
			// quoting since table names can't be bound as parameters.
			query := fmt.Sprintf("SELECT COUNT(*) FROM %q", name)
			if err := db.QueryRow(query).Scan(&count); err != nil {
				return nil, fmt.Errorf("counting rows in %s: %w", name, err)
			}
			stats = append(stats, tableStat{Database: label, Table: name, RowCount: count})
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].RowCount > stats[j].RowCount })
	return stats, nil
}
