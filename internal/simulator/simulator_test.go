package simulator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jamesenki/payments-ingestion-sub001/internal/config"
	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
	"github.com/jamesenki/payments-ingestion-sub001/internal/publish"
)

func testWatcher(t *testing.T, yaml string) *config.Watcher {
	t.Helper()
	path := filepath.Join(t.TempDir(), "generator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	w, err := config.NewWatcher(path, nil)
	require.NoError(t, err)
	return w
}

const fastYAML = `
rate: 100000
batch_size: 5
seed: 7
sink:
  kind: memory
`

func TestRun_publishesExactBatchAndStops(t *testing.T) {
	w := testWatcher(t, fastYAML)
	sink := publish.NewMemorySink()
	sim := New(w, sink, otel.Tracer("test"), Options{MaxTransactions: 5}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sim.Run(ctx))

	snap := sim.Stats()
	require.Equal(t, int64(5), snap.Generated)
	require.Equal(t, int64(5), snap.Published)
	require.Zero(t, snap.Failed)
	require.Equal(t, int64(1), snap.Batches)
	require.Len(t, sink.Batches(), 1)
	require.Len(t, sink.Batches()[0], 5)
	require.Equal(t, StateStopped, sim.State())
}

func TestRun_largeAmountScenarioFiresOnEveryTransaction(t *testing.T) {
	w := testWatcher(t, `
rate: 100000
batch_size: 5
seed: 7
fields:
  amount:
    kind: constant
    value: 1000
scenarios:
  - kind: large_amount
    probability: 1.0
    threshold: 500
sink:
  kind: memory
`)
	sink := publish.NewMemorySink()
	sim := New(w, sink, otel.Tracer("test"), Options{MaxTransactions: 5}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sim.Run(ctx))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	for _, tx := range batches[0] {
		require.Len(t, tx.Violations, 1)
		require.Equal(t, model.ViolationLargeAmount, tx.Violations[0].Kind)
		// constant 1000 against threshold 500 is exactly 2x: high.
		require.Equal(t, model.SeverityHigh, tx.Violations[0].Severity)
	}
	require.Equal(t, int64(5), sim.Stats().Violations[model.ViolationLargeAmount])
}

func TestRun_continuesAfterPublishFailure(t *testing.T) {
	w := testWatcher(t, fastYAML)
	sink := publish.NewMemorySink()
	sink.FailNext(1, errors.Join(publish.ErrPermanent, errors.New("bus gone")))
	sim := New(w, sink, otel.Tracer("test"), Options{MaxTransactions: 10}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sim.Run(ctx))

	snap := sim.Stats()
	require.Equal(t, int64(10), snap.Generated)
	require.Equal(t, int64(5), snap.Failed)
	require.Equal(t, int64(5), snap.Published)
	require.Equal(t, int64(2), snap.Batches)
}

func TestRun_pacesBatchesAgainstWallClock(t *testing.T) {
	w := testWatcher(t, `
rate: 10
batch_size: 5
seed: 3
sink:
  kind: memory
`)
	sink := publish.NewMemorySink()
	sim := New(w, sink, otel.Tracer("test"), Options{}, nil)

	// At 10 tx/s and batches of 5, cycles land at 0.5s intervals. A run
	// bounded just past one second must produce the 0.5s batch; the cycle at
	// the 1.0s boundary may or may not land before the deadline.
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 1050*time.Millisecond)
	defer cancel()
	require.NoError(t, sim.Run(ctx))
	elapsed := time.Since(start)

	batches := sink.Batches()
	require.GreaterOrEqual(t, len(batches), 1)
	require.LessOrEqual(t, len(batches), 2)
	for _, b := range batches {
		require.Len(t, b, 5)
	}
	require.Less(t, elapsed, 2*time.Second)
	require.Equal(t, StateStopped, sim.State())
}

func TestRun_stopsOnContextCancel(t *testing.T) {
	w := testWatcher(t, `
rate: 1
batch_size: 100
sink:
  kind: memory
`)
	sim := New(w, publish.NewMemorySink(), otel.Tracer("test"), Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = sim.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		require.Equal(t, StateStopped, sim.State())
	case <-time.After(2 * time.Second):
		t.Fatalf("simulator did not stop after context cancellation")
	}
}

func TestRun_secondRunRejected(t *testing.T) {
	w := testWatcher(t, fastYAML)
	sim := New(w, publish.NewMemorySink(), otel.Tracer("test"), Options{MaxTransactions: 5}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sim.Run(ctx))
	require.ErrorIs(t, sim.Run(ctx), ErrNotRunnable)
}

func TestRun_deterministicAcrossSameSeed(t *testing.T) {
	run := func() []string {
		w := testWatcher(t, fastYAML)
		sink := publish.NewMemorySink()
		sim := New(w, sink, otel.Tracer("test"), Options{MaxTransactions: 10}, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, sim.Run(ctx))

		var ids []string
		for _, b := range sink.Batches() {
			ids = append(ids, b.IDs()...)
		}
		return ids
	}
	require.Equal(t, run(), run())
}

func TestBatchInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Rate = 10
	cfg.BatchSize = 5
	require.Equal(t, 500*time.Millisecond, batchInterval(cfg))
}
