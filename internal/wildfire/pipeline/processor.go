package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
)

// runProcessor consumes ClusterMessage values grouped into time-steps,
// drives the association engine for each time-step, runs a merge pass
// between time-steps, and emits AddFire before any AddAssociation that
// references it, preserving per-fire causality for the writer.
//
// A domain-full error (the root fire code counter exhausted, see
// fire.ErrFireCodeCounterExhausted) is fatal: the engine can no longer
// mint new fire codes, so runProcessor stops driving it and returns the
// error, relying on the writer's own drain loop to keep consuming out so
// this function's earlier sends never block.
func runProcessor(codeGen *fire.CodeGenerator, seed []*fire.Wildfire, in <-chan ClusterMessage, out chan<- DatabaseMessage) error {
	engine := fire.NewList(codeGen)
	engine.Seed(seed)

	var scanTime time.Time
	var traceID string
	var batch []fire.ClusterRecord

	for msg := range in {
		switch m := msg.(type) {
		case StartTimeStep:
			scanTime = m.ScanTime
			traceID = m.TraceID
			batch = batch[:0]

		case ClusterRecordMessage:
			batch = append(batch, m.Record)

		case FinishTimeStep:
			newFires, associations, stepErr := engine.ProcessTimeStep(scanTime, batch)
			log.Printf("wildfire pipeline: trace %s: scan %s produced %d new fires, %d associations",
				traceID, scanTime.UTC().Format(time.RFC3339), len(newFires), len(associations))
			// Emit whatever was resolved before a fatal error, in causal
			// order, before reporting it: those fires and associations are
			// valid and worth persisting even though the engine can't
			// continue past this point.
			for _, f := range newFires {
				out <- AddFire{Fire: f}
			}
			for _, a := range associations {
				out <- AddAssociation{Association: a}
			}
			if stepErr != nil {
				return fmt.Errorf("wildfire pipeline: trace %s: scan %s: %w", traceID, scanTime.UTC().Format(time.RFC3339), stepErr)
			}

			engine.MergeFires()

		default:
			log.Printf("wildfire pipeline: processor received unknown message type %T", msg)
		}
	}

	engine.DrainAll()
	return nil
}
