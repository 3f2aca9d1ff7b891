package pipeline

import (
	"context"
	"fmt"
	"log"
)

// runWriter batches DatabaseMessage values into the sink, bracketing each
// batch with BeginBatch/CommitBatch. A batch commits once either counter
// reaches its configured size, and a final batch (possibly partial) flushes
// when in closes.
//
// Once a write fails, the batch is abandoned: runWriter keeps ranging over
// in, discarding every further message, instead of returning immediately.
// The processor stage's sends to this channel block once its bounded
// buffer fills, so a writer that stopped reading here would leave the
// processor stuck forever on a full channel and the pipeline would never
// reach g.Wait(); draining keeps the channel open for business until the
// processor stage finishes and closes it.
func runWriter(ctx context.Context, sink Sink, in <-chan DatabaseMessage, fireBatchSize, assocBatchSize int) error {
	if err := sink.BeginBatch(ctx); err != nil {
		return drain(in, fmt.Errorf("wildfire pipeline: starting batch: %w", err))
	}

	fireCount, assocCount := 0, 0

	flush := func() error {
		if err := sink.CommitBatch(ctx); err != nil {
			return fmt.Errorf("wildfire pipeline: committing batch: %w", err)
		}
		if err := sink.BeginBatch(ctx); err != nil {
			return fmt.Errorf("wildfire pipeline: starting batch: %w", err)
		}
		fireCount, assocCount = 0, 0
		return nil
	}

	for msg := range in {
		switch m := msg.(type) {
		case AddFire:
			if err := sink.AddFire(ctx, m.Fire); err != nil {
				return drain(in, fmt.Errorf("wildfire pipeline: writing fire %s: %w", m.Fire.Code(), err))
			}
			fireCount++

		case AddAssociation:
			if err := sink.AddAssociation(ctx, m.Association); err != nil {
				return drain(in, fmt.Errorf("wildfire pipeline: writing association for cluster %d: %w", m.Association.ClusterRowID, err))
			}
			assocCount++

		default:
			return drain(in, fmt.Errorf("wildfire pipeline: writer received unknown message type %T", msg))
		}

		if fireCount >= fireBatchSize || assocCount >= assocBatchSize {
			if err := flush(); err != nil {
				return drain(in, err)
			}
		}
	}

	return sink.CommitBatch(ctx)
}

// drain keeps reading in until it closes, logging and discarding every
// message, then returns firstErr. The writer calls this instead of
// returning directly on error so the processor stage's sends to in can
// never block on a channel nobody is consuming from.
func drain(in <-chan DatabaseMessage, firstErr error) error {
	dropped := 0
	for range in {
		dropped++
	}
	if dropped > 0 {
		log.Printf("wildfire pipeline: writer stage discarded %d message(s) after a fatal error: %v", dropped, firstErr)
	}
	return firstErr
}
