// Package grpcsink decorates a pipeline.Sink with a gRPC broadcast of
// every event it forwards, so an external subscriber (a map UI, an
// alerting service) can follow the association engine's output live
// instead of polling the durable store.
package grpcsink

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/pipeline"
	"google.golang.org/protobuf/types/known/structpb"
)

// PublishSink wraps an already-configured durable sink, forwarding every
// BeginBatch/AddFire/AddAssociation/CommitBatch call unchanged and
// additionally broadcasting AddFire/AddAssociation events to whatever
// gRPC subscribers are currently connected through Server.
type PublishSink struct {
	pipeline.Sink

	mu   sync.Mutex
	subs map[chan *structpb.Struct]struct{}
}

// NewPublishSink wraps inner with a gRPC fan-out of its events.
func NewPublishSink(inner pipeline.Sink) *PublishSink {
	return &PublishSink{
		Sink: inner,
		subs: make(map[chan *structpb.Struct]struct{}),
	}
}

// AddFire forwards to the wrapped sink, then broadcasts the new state.
func (p *PublishSink) AddFire(ctx context.Context, w *fire.Wildfire) error {
	if err := p.Sink.AddFire(ctx, w); err != nil {
		return err
	}
	centroid := w.Centroid()
	p.broadcast(mustStruct(map[string]interface{}{
		"type":          "add_fire",
		"fire_code":     w.Code().String(),
		"satellite":     w.Satellite().String(),
		"last_observed": w.LastObserved().Unix(),
		"centroid_lat":  centroid.Lat,
		"centroid_lon":  centroid.Lon,
		"max_power":     w.MaxPower(),
	}))
	return nil
}

// AddAssociation forwards to the wrapped sink, then broadcasts the match.
func (p *PublishSink) AddAssociation(ctx context.Context, a fire.Association) error {
	if err := p.Sink.AddAssociation(ctx, a); err != nil {
		return err
	}
	p.broadcast(mustStruct(map[string]interface{}{
		"type":           "add_association",
		"cluster_row_id": a.ClusterRowID,
		"fire_code":      a.FireCode.String(),
	}))
	return nil
}

func mustStruct(fields map[string]interface{}) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		// every value above is a string, int64, or float64, all of which
		// structpb.NewStruct accepts; a failure here means a field was
		// added above without updating this comment and this assumption.
		panic(fmt.Sprintf("grpcsink: building event struct: %v", err))
	}
	return s
}

// broadcast fans s out to every connected subscriber, dropping it for
// any subscriber whose buffer is full rather than blocking the pipeline.
func (p *PublishSink) broadcast(s *structpb.Struct) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- s:
		default:
			log.Printf("wildfire grpcsink: dropping event for a slow subscriber")
		}
	}
}

func (p *PublishSink) subscribe() chan *structpb.Struct {
	ch := make(chan *structpb.Struct, 16)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

func (p *PublishSink) unsubscribe(ch chan *structpb.Struct) {
	p.mu.Lock()
	delete(p.subs, ch)
	p.mu.Unlock()
}
