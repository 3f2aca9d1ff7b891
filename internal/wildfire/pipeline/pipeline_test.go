package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/velocity.report/internal/wildfire/cluster"
	"github.com/banshee-data/velocity.report/internal/wildfire/fire"
	"github.com/banshee-data/velocity.report/internal/wildfire/geo"
	"github.com/banshee-data/velocity.report/internal/wildfire/pixel"
)

func clusterRecord(rowID int64, lat, lon float64, t time.Time) fire.ClusterRecord {
	pl := pixel.NewPixelList()
	pl.Push(pixel.Pixel{
		UL: geo.Coord{Lat: lat + 1, Lon: lon},
		LL: geo.Coord{Lat: lat, Lon: lon},
		LR: geo.Coord{Lat: lat, Lon: lon + 1},
		UR: geo.Coord{Lat: lat + 1, Lon: lon + 1},
	})
	return fire.ClusterRecord{
		RowID:     rowID,
		ScanStart: t,
		ScanEnd:   t,
		Cluster:   cluster.NewCluster(1, 0, 0, 0, pl),
	}
}

// scriptedReader replays a fixed sequence of time-steps.
type scriptedReader struct {
	steps [][]fire.ClusterRecord
	times []time.Time
}

func (r *scriptedReader) Run(ctx context.Context, out chan<- ClusterMessage) error {
	for i, step := range r.steps {
		out <- StartTimeStep{ScanTime: r.times[i]}
		for _, rec := range step {
			out <- ClusterRecordMessage{Record: rec}
		}
		out <- FinishTimeStep{}
	}
	return nil
}

// recordingSink captures everything written to it, guarded by a mutex since
// the writer stage runs on its own goroutine.
type recordingSink struct {
	mu           sync.Mutex
	fires        []*fire.Wildfire
	associations []fire.Association
	batches      int
}

func (s *recordingSink) BeginBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	return nil
}

func (s *recordingSink) AddFire(ctx context.Context, w *fire.Wildfire) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fires = append(s.fires, w)
	return nil
}

func (s *recordingSink) AddAssociation(ctx context.Context, a fire.Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.associations = append(s.associations, a)
	return nil
}

func (s *recordingSink) CommitBatch(ctx context.Context) error { return nil }

func TestRunEndToEndSingleFire(t *testing.T) {
	t0 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)

	reader := &scriptedReader{
		steps: [][]fire.ClusterRecord{
			{clusterRecord(1, 45, -120, t0)},
			{clusterRecord(2, 45, -120, t1)},
		},
		times: []time.Time{t0, t1},
	}
	sink := &recordingSink{}

	err := Run(context.Background(), reader, sink, fire.NewCodeGenerator(1), nil, 10, 10)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(sink.fires) != 1 {
		t.Fatalf("expected 1 fire created, got %d", len(sink.fires))
	}
	if len(sink.associations) != 2 {
		t.Fatalf("expected 2 associations (one per time-step), got %d", len(sink.associations))
	}
	for _, a := range sink.associations {
		if a.FireCode != sink.fires[0].Code() {
			t.Errorf("association %+v does not reference the created fire", a)
		}
	}
}

func TestRunEndToEndDisjointFires(t *testing.T) {
	t0 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	reader := &scriptedReader{
		steps: [][]fire.ClusterRecord{
			{clusterRecord(1, 45, -120, t0), clusterRecord(2, 10, 10, t0)},
		},
		times: []time.Time{t0},
	}
	sink := &recordingSink{}

	if err := Run(context.Background(), reader, sink, fire.NewCodeGenerator(1), nil, 10, 10); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(sink.fires) != 2 {
		t.Fatalf("expected 2 disjoint fires, got %d", len(sink.fires))
	}
	if len(sink.associations) != 2 {
		t.Fatalf("expected 2 associations, got %d", len(sink.associations))
	}
}

func TestRunWriterFlushesOnBatchSize(t *testing.T) {
	t0 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	// Five disjoint clusters in one time-step with a fire batch size of 2
	// forces multiple commit/begin cycles within the single writer call.
	var recs []fire.ClusterRecord
	for i := 0; i < 5; i++ {
		recs = append(recs, clusterRecord(int64(i+1), float64(i*10), float64(i*10), t0))
	}

	reader := &scriptedReader{steps: [][]fire.ClusterRecord{recs}, times: []time.Time{t0}}
	sink := &recordingSink{}

	if err := Run(context.Background(), reader, sink, fire.NewCodeGenerator(1), nil, 2, 2); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(sink.fires) != 5 {
		t.Fatalf("expected 5 fires, got %d", len(sink.fires))
	}
	if sink.batches < 2 {
		t.Errorf("expected multiple batch begins with a small batch size, got %d", sink.batches)
	}
}

// failingSink errors on every AddFire, simulating a durable-store failure
// partway through a time-step's writes.
type failingSink struct {
	recordingSink
}

func (s *failingSink) AddFire(ctx context.Context, w *fire.Wildfire) error {
	return errors.New("simulated write failure")
}

func TestRunDoesNotHangWhenWriterFailsMidBatch(t *testing.T) {
	t0 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	// More cluster records in one time-step than the pipeline's channel
	// capacity. Neighbouring unit squares on the diagonal touch at a corner,
	// so every other record opens a new fire and the rest match one; the
	// AddFire and AddAssociation messages together still outnumber the
	// capacity, so the processor's sends to the writer would block forever
	// if the writer stopped draining after its first error instead of
	// continuing to discard messages.
	var recs []fire.ClusterRecord
	for i := 0; i < ChannelCapacity+50; i++ {
		recs = append(recs, clusterRecord(int64(i+1), float64(i), float64(i), t0))
	}

	reader := &scriptedReader{steps: [][]fire.ClusterRecord{recs}, times: []time.Time{t0}}
	sink := &failingSink{}

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), reader, sink, fire.NewCodeGenerator(1), nil, 10_000, 10_000)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return the simulated write failure")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return: writer likely stopped draining after its first error, blocking the processor")
	}
}

func TestRunPropagatesFireCodeCounterExhaustion(t *testing.T) {
	t0 := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	// Two disjoint clusters need two root codes, but the generator starts
	// at the last valid number, so the first new fire takes it and the
	// second new-fire attempt must fail fatally instead of silently
	// wrapping or skipping a code.
	reader := &scriptedReader{
		steps: [][]fire.ClusterRecord{
			{clusterRecord(1, 45, -120, t0), clusterRecord(2, 10, 10, t0)},
		},
		times: []time.Time{t0},
	}
	sink := &recordingSink{}

	err := Run(context.Background(), reader, sink, fire.NewCodeGenerator(fire.MaxFireNum), nil, 10, 10)
	if !errors.Is(err, fire.ErrFireCodeCounterExhausted) {
		t.Fatalf("expected Run to fail with ErrFireCodeCounterExhausted, got %v", err)
	}
}
