// Command wildfire-prune removes cluster and fire records past their
// retention horizon. It defaults to a dry run that only reports what
// would be deleted; pass -execute to actually delete.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/store"
	"github.com/banshee-data/velocity.report/internal/wildfirecli"
)

func main() {
	var (
		clustersDBPath = flag.String("clusters-db", wildfirecli.EnvOrDefault("CLUSTER_DB", "clusters.db"), "path to the clusters database (or $CLUSTER_DB)")
		firesDBPath    = flag.String("fires-db", wildfirecli.EnvOrDefault("FIRES_DB", "fires.db"), "path to the fires database (or $FIRES_DB)")
		horizonDays    = flag.Int("horizon-days", 21, "delete clusters/fires not observed within this many days (matches the default purge horizon)")
		execute        = flag.Bool("execute", false, "actually delete matching rows (default is a dry run)")
		verbose        = flag.Bool("verbose", false, "log per-database counts before deleting")
	)
	flag.Parse()

	if err := run(*clustersDBPath, *firesDBPath, *horizonDays, *execute, *verbose); err != nil {
		log.Fatalf("wildfire-prune: %v", err)
	}
}

func run(clustersDBPath, firesDBPath string, horizonDays int, execute, verbose bool) error {
	if horizonDays <= 0 {
		return fmt.Errorf("wildfire-prune: -horizon-days must be positive, got %d", horizonDays)
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -horizonDays)

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

	clusterCount, err := clustersDB.CountOlderThan(cutoff)
	if err != nil {
		return err
	}
	fireCount, err := firesDB.CountStaleBefore(cutoff)
	if err != nil {
		return err
	}

	if verbose || !execute {
		fmt.Printf("wildfire-prune: %d cluster row(s) and %d fire row(s) older than %s\n",
			clusterCount, fireCount, cutoff.Format(time.RFC3339))
	}

	if !execute {
		fmt.Println("wildfire-prune: dry run, pass -execute to delete")
		return nil
	}

	deletedClusters, err := clustersDB.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}
	deletedFires, err := firesDB.DeleteStaleBefore(cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("wildfire-prune: deleted %d cluster row(s) and %d fire row(s)\n", deletedClusters, deletedFires)
	return nil
}
