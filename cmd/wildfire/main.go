// Command wildfire runs one pass of the cluster-to-wildfire association
// pipeline: it reads persisted cluster records for a satellite/sector out
// of the clusters database, threads them into wildfire entities, and
// writes the result into the fires database.
//
// The satellite image decoder and the archive file walk that produce the
// clusters database are external collaborators of this tool, not part of
// it; this binary only wires the association engine to its two stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/banshee-data/velocity.report/internal/monitoring"
	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/grpcsink"
	"github.com/banshee-data/velocity.report/internal/wildfire/pipeline"
	"github.com/banshee-data/velocity.report/internal/wildfire/satellite"
	"github.com/banshee-data/velocity.report/internal/wildfire/store"
	"github.com/banshee-data/velocity.report/internal/wildfirecli"
	"github.com/banshee-data/velocity.report/internal/wildfireconfig"
)

func main() {
	var (
		clustersDBPath = flag.String("clusters-db", wildfirecli.EnvOrDefault("CLUSTER_DB", "clusters.db"), "path to the clusters database (or $CLUSTER_DB)")
		firesDBPath    = flag.String("fires-db", wildfirecli.EnvOrDefault("FIRES_DB", "fires.db"), "path to the fires database (or $FIRES_DB)")
		satFlag        = flag.String("satellite", "G16", "satellite tag: G16 or G17")
		sectorFlag     = flag.String("sector", "FDCC", "sector tag: FDCF, FDCC, FDCM1, or FDCM2")
		bboxFlag       = flag.String("bbox", "", "min_lat,min_lon,max_lat,max_lon (default: global)")
		startFlag      = flag.String("start", "", "only process scans after this time, YYYY-MM-DD-HH (default: beginning of time)")
		configPath     = flag.String("config", "", "path to a tuning config JSON file (optional)")
		publishAddr    = flag.String("publish-addr", "", "if set, stream AddFire/AddAssociation events to gRPC subscribers on this address (e.g. :50061)")
		verbose        = flag.Bool("verbose", false, "log per-time-step processing detail")
	)
	flag.Parse()

	if err := run(*clustersDBPath, *firesDBPath, *satFlag, *sectorFlag, *bboxFlag, *startFlag, *configPath, *publishAddr, *verbose); err != nil {
		log.Fatalf("wildfire: %v", err)
	}
}

func run(clustersDBPath, firesDBPath, satFlag, sectorFlag, bboxFlag, startFlag, configPath, publishAddr string, verbose bool) error {
	sat, err := satellite.ParseSatellite(satFlag)
	if err != nil {
		return err
	}
	sector, err := satellite.ParseSector(sectorFlag)
	if err != nil {
		return err
	}
	box, err := wildfirecli.ParseBoundingBox(bboxFlag)
	if err != nil {
		return err
	}
	after := time.Unix(0, 0).UTC()
	if startFlag != "" {
		after, err = wildfirecli.ParseScanTime(startFlag)
		if err != nil {
			return err
		}
	}

	cfg := wildfireconfig.EmptyTuningConfig()
	if configPath != "" {
		cfg, err = wildfireconfig.LoadTuningConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	if verbose {
		monitoring.Logf("wildfire: %s %s, bbox %s, after %s, clusters=%s fires=%s",
			sat, sector, box, after.Format(time.RFC3339), clustersDBPath, firesDBPath)
	}

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

	nextNum, err := firesDB.NextFireNum()
	if err != nil {
		return fmt.Errorf("reading next fire number: %w", err)
	}
	codeGen := fire.NewCodeGenerator(nextNum)

	seed, err := loadActiveFires(firesDB, sat)
	if err != nil {
		return fmt.Errorf("loading active fires: %w", err)
	}
	if verbose {
		monitoring.Logf("wildfire: resuming with %d active fire(s) for %s", len(seed), sat)
	}

	reader := &dbReader{clusters: clustersDB, satellite: sat, sector: sector, after: after, box: box}

	var sink pipeline.Sink = firesDB
	if publishAddr != "" {
		lis, err := net.Listen("tcp", publishAddr)
		if err != nil {
			return fmt.Errorf("listening for publish subscribers on %s: %w", publishAddr, err)
		}
		publishSink := grpcsink.NewPublishSink(firesDB)
		grpcServer := grpcsink.NewServer(publishSink)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				monitoring.Logf("wildfire: publish server stopped: %v", err)
			}
		}()
		defer grpcServer.Stop()
		sink = publishSink
		if verbose {
			monitoring.Logf("wildfire: streaming events to gRPC subscribers on %s", publishAddr)
		}
	}

	ctx := context.Background()
	if err := pipeline.Run(ctx, reader, sink, codeGen, seed, cfg.GetFireBatchSize(), cfg.GetAssociationBatchSize()); err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	if err := firesDB.SaveNextFireNum(codeGen.Peek()); err != nil {
		return fmt.Errorf("saving next fire number: %w", err)
	}

	fmt.Fprintf(os.Stdout, "wildfire: processed %s %s into fires_db=%s\n", sat, sector, firesDBPath)
	return nil
}
