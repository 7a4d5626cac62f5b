package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/jamesenki/payments-ingestion-sub001/internal/config"
	"github.com/jamesenki/payments-ingestion-sub001/internal/publish"
	"github.com/jamesenki/payments-ingestion-sub001/internal/simulator"
	"github.com/jamesenki/payments-ingestion-sub001/internal/telemetry"
)

func runSimulation(cmd *cobra.Command, _ []string) error {
	logger := telemetry.NewLogger(logOutput)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	watcher, err := config.NewWatcher(cfgFile, logger)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg := watcher.Active()

	for _, warning := range cfg.Telemetry.Warnings() {
		logger.Warn("telemetry configuration", zap.String("detail", warning))
	}
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		// Flush on a fresh context; the run context is already cancelled
		// when we get here after an interrupt.
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	metrics, err := publish.NewMetrics(otel.Meter("txgen"))
	if err != nil {
		return fmt.Errorf("create publish metrics: %w", err)
	}

	sink, err := buildSink(cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("initialize sink: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("close sink", zap.Error(err))
		}
	}()

	watcher.Watch()

	sim := simulator.New(watcher, sink, otel.Tracer("txgen"), simulator.Options{
		Seed:            seed,
		MaxTransactions: maxTransactions,
	}, logger)
	if err := sim.Run(ctx); err != nil {
		return err
	}

	stats := metrics.Stats()
	logger.Info("delivery summary",
		zap.Int64("published", stats.Published),
		zap.Int64("failed", stats.Failed),
		zap.Int64("retries", stats.Retries),
		zap.Float64("delivery_rate_per_sec", stats.DeliveryRate))
	return nil
}

// buildSink maps the sink configuration onto a publish.Sink. The bus kind
// talks to an already-provisioned ingestion endpoint; txgen never creates
// bus infrastructure.
func buildSink(cfg *config.Config, metrics *publish.Metrics, logger *zap.Logger) (publish.Sink, error) {
	switch cfg.Sink.Kind {
	case config.SinkMemory:
		return publish.WithMetrics(publish.NewMemorySink(), metrics, "memory"), nil
	case config.SinkFile:
		sink, err := publish.NewFileSink(cfg.Sink.File.Path, cfg.Sink.File.Append, cfg.Sink.File.Format, logger)
		if err != nil {
			return nil, err
		}
		return publish.WithMetrics(sink, metrics, "file"), nil
	case config.SinkBus:
		client := publish.NewHTTPBusClient(cfg.Sink.Bus.Endpoint, 10*time.Second)
		return publish.NewBusSink(client, publish.BusOptions{
			MaxAttempts: cfg.Sink.Bus.MaxAttempts,
			BackoffBase: cfg.Sink.Bus.BackoffBase,
			BackoffMax:  cfg.Sink.Bus.BackoffMax,
		}, metrics, logger), nil
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}
