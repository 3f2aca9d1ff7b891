// Package pipeline wires the three long-lived workers that turn a stream of
// persisted cluster records into wildfire entities and their associations:
// a reader that groups cluster rows by scan time, a processor that runs the
// association engine, and a writer that batches results into the durable
// store. The three stages are connected by bounded channels; back-pressure
// is just the channel blocking when full.
package pipeline

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
)

// ChannelCapacity bounds both hand-offs in the pipeline (reader->processor,
// processor->writer).
const ChannelCapacity = 1000

// DefaultFireBatchSize and DefaultAssociationBatchSize are the writer's
// default transaction sizes.
const (
	DefaultFireBatchSize        = 10_000
	DefaultAssociationBatchSize = 100_000
)

// ClusterMessage is the tagged sum the reader emits: a new time-step
// starting, one cluster record within it, or the time-step finishing.
type ClusterMessage interface {
	isClusterMessage()
}

// StartTimeStep marks the beginning of a scan-time group. TraceID
// correlates this time-step's processor log lines; readers that don't care
// about correlation can leave it empty.
type StartTimeStep struct {
	ScanTime time.Time
	TraceID  string
}

// ClusterRecordMessage carries one persisted cluster row within the
// current time-step.
type ClusterRecordMessage struct {
	Record fire.ClusterRecord
}

// FinishTimeStep marks the end of a scan-time group: the processor resolves
// candidates and runs a merge pass once it sees this.
type FinishTimeStep struct{}

func (StartTimeStep) isClusterMessage()       {}
func (ClusterRecordMessage) isClusterMessage() {}
func (FinishTimeStep) isClusterMessage()      {}

// DatabaseMessage is the tagged sum the processor emits for the writer to
// persist.
type DatabaseMessage interface {
	isDatabaseMessage()
}

// AddFire records a newly created (or split-spawned) wildfire.
type AddFire struct {
	Fire *fire.Wildfire
}

// AddAssociation records that a cluster row was matched or assigned to a
// fire code.
type AddAssociation struct {
	Association fire.Association
}

func (AddFire) isDatabaseMessage()        {}
func (AddAssociation) isDatabaseMessage() {}

// Reader produces ClusterMessage values onto out and returns when the
// source is exhausted or ctx is done. Run closes out once Run returns,
// whether or not it failed, so downstream stages terminate; Run also logs
// the returned error. Implementations do not close out themselves.
type Reader interface {
	Run(ctx context.Context, out chan<- ClusterMessage) error
}

// Sink persists the processor's output. Implementations (see the store
// package) wrap a transactional batch insert.
type Sink interface {
	BeginBatch(ctx context.Context) error
	AddFire(ctx context.Context, w *fire.Wildfire) error
	AddAssociation(ctx context.Context, a fire.Association) error
	CommitBatch(ctx context.Context) error
}

// Run starts the reader, processor, and writer concurrently and blocks
// until all three finish. A stage's failure is logged and cancels the ctx
// shared by the reader and writer; the writer keeps draining its input
// until the processor closes it, and the first error is returned once
// every stage has exited. seed pre-populates the processor's active-fire list (see
// fire.List.Seed) so a restarted pipeline resumes matching against fires
// it already knew about; pass nil to start from an empty list.
func Run(ctx context.Context, reader Reader, sink Sink, codeGen *fire.CodeGenerator, seed []*fire.Wildfire, fireBatchSize, assocBatchSize int) error {
	if fireBatchSize <= 0 {
		fireBatchSize = DefaultFireBatchSize
	}
	if assocBatchSize <= 0 {
		assocBatchSize = DefaultAssociationBatchSize
	}

	clusterCh := make(chan ClusterMessage, ChannelCapacity)
	dbCh := make(chan DatabaseMessage, ChannelCapacity)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(clusterCh)
		if err := reader.Run(ctx, clusterCh); err != nil {
			log.Printf("wildfire pipeline: reader stage failed: %v", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		defer close(dbCh)
		if err := runProcessor(codeGen, seed, clusterCh, dbCh); err != nil {
			log.Printf("wildfire pipeline: processor stage failed: %v", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := runWriter(ctx, sink, dbCh, fireBatchSize, assocBatchSize); err != nil {
			log.Printf("wildfire pipeline: writer stage failed: %v", err)
			return err
		}
		return nil
	})

	return g.Wait()
}
