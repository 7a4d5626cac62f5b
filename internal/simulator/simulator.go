// Package simulator drives the generate → inject → publish loop at the
// configured rate and owns the run lifecycle.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jamesenki/payments-ingestion-sub001/internal/compliance"
	"github.com/jamesenki/payments-ingestion-sub001/internal/config"
	"github.com/jamesenki/payments-ingestion-sub001/internal/generator"
	"github.com/jamesenki/payments-ingestion-sub001/internal/publish"
)

// Lifecycle states.
const (
	StateCreated      = "created"
	StateInitializing = "initializing"
	StateRunning      = "running"
	StateStopping     = "stopping"
	StateStopped      = "stopped"
)

// Options tunes one run.
type Options struct {
	// Seed overrides the configured seed when non-zero.
	Seed int64
	// MaxTransactions stops the run after roughly that many generated
	// transactions. Zero means unbounded.
	MaxTransactions int64
}

// Simulator owns the single control loop: it snapshots the active
// configuration once per cycle, generates a batch, runs compliance
// injection, publishes, and folds the result into RunStats. The
// configuration watcher may swap the active configuration concurrently;
// a batch in flight keeps the snapshot it started with.
type Simulator struct {
	watcher *config.Watcher
	sink    publish.Sink
	opts    Options
	logger  *zap.Logger
	tracer  trace.Tracer

	lifecycle *fsm.FSM
	stats     *RunStats

	gen    *generator.Generator
	engine *compliance.Engine
}

// New wires a simulator around an already-loaded configuration watcher and
// an initialized sink.
func New(watcher *config.Watcher, sink publish.Sink, tracer trace.Tracer, opts Options, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		watcher: watcher,
		sink:    sink,
		opts:    opts,
		logger:  logger,
		tracer:  tracer,
		stats:   newRunStats(),
		lifecycle: fsm.NewFSM(
			StateCreated,
			fsm.Events{
				{Name: "init", Src: []string{StateCreated}, Dst: StateInitializing},
				{Name: "start", Src: []string{StateInitializing}, Dst: StateRunning},
				{Name: "stop", Src: []string{StateRunning, StateInitializing}, Dst: StateStopping},
				{Name: "halt", Src: []string{StateStopping}, Dst: StateStopped},
			},
			fsm.Callbacks{},
		),
	}
}

// State reports the current lifecycle state.
func (s *Simulator) State() string { return s.lifecycle.Current() }

// Stats exposes the run counters.
func (s *Simulator) Stats() Snapshot { return s.stats.Snapshot() }

// Run executes the loop until ctx is cancelled or MaxTransactions is
// reached. A stop signal is observed at sleep and backoff boundaries: the
// in-flight batch finishes its publish attempt (bounded by the sink's retry
// ceiling) and no new batch starts afterwards. Per-batch publish failures
// never stop the run.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.lifecycle.Event(ctx, "init"); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunnable, err)
	}

	cfg := s.watcher.Active()
	seed := s.opts.Seed
	if seed == 0 {
		seed = cfg.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	s.gen = generator.New(rng, s.logger)
	s.engine = compliance.NewEngine(rng, s.logger)

	s.logger.Info("simulator starting",
		zap.Float64("rate", cfg.Rate),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int64("seed", seed),
		zap.Int("scenarios", len(cfg.Scenarios)))

	_ = s.lifecycle.Event(ctx, "start")
	err := s.loop(ctx)

	_ = s.lifecycle.Event(context.Background(), "halt")
	s.logSummary()
	return err
}

func (s *Simulator) loop(ctx context.Context) error {
	var produced int64
	for {
		// The configuration reference is read once per cycle; a reload
		// taking effect mid-batch is fine, a torn config is not.
		cfg := s.watcher.Active()

		select {
		case <-ctx.Done():
			_ = s.lifecycle.Event(context.Background(), "stop")
			return nil
		case <-time.After(batchInterval(cfg)):
		}

		n := cfg.BatchSize
		if s.opts.MaxTransactions > 0 {
			remaining := s.opts.MaxTransactions - produced
			if remaining < int64(n) {
				n = int(remaining)
			}
		}
		if n <= 0 {
			_ = s.lifecycle.Event(context.Background(), "stop")
			return nil
		}

		s.runCycle(ctx, cfg, n)
		produced += int64(n)

		if s.opts.MaxTransactions > 0 && produced >= s.opts.MaxTransactions {
			_ = s.lifecycle.Event(context.Background(), "stop")
			return nil
		}
	}
}

func (s *Simulator) runCycle(ctx context.Context, cfg *config.Config, n int) {
	spanCtx, span := s.tracer.Start(ctx, "txgen.batch_cycle",
		trace.WithAttributes(attribute.Int("batch_size", n)))
	defer span.End()

	batch := s.gen.Batch(cfg, n)
	for _, tx := range batch {
		s.engine.Apply(tx, cfg.Scenarios)
	}

	res, err := s.sink.Publish(spanCtx, batch)
	s.stats.recordBatch(batch, res)

	if err != nil {
		// The run continues; permanently failed items are the dead-letter
		// path's problem, not ours.
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("batch publish failed",
			zap.Int("failed", res.Failed),
			zap.Int("attempts", res.Attempts),
			zap.Error(err))
		return
	}
	span.SetAttributes(attribute.Int("published", res.Published))
}

func (s *Simulator) logSummary() {
	snap := s.stats.Snapshot()
	fields := []zap.Field{
		zap.Int64("generated", snap.Generated),
		zap.Int64("published", snap.Published),
		zap.Int64("failed", snap.Failed),
		zap.Int64("batches", snap.Batches),
		zap.Duration("elapsed", snap.Elapsed),
	}
	for kind, count := range snap.Violations {
		fields = append(fields, zap.Int64("violations_"+string(kind), count))
	}
	s.logger.Info("simulation complete", fields...)
}

// batchInterval converts the per-transaction rate into the pause between
// batch cycles.
func batchInterval(cfg *config.Config) time.Duration {
	if cfg.Rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(cfg.BatchSize) / cfg.Rate * float64(time.Second))
}

// ErrNotRunnable is returned when Run is called on a simulator that already
// ran.
var ErrNotRunnable = errors.New("simulator is not in a runnable state")
