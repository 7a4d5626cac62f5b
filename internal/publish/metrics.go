package publish

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics accumulates delivery counters at the publisher layer, independent
// of whatever run statistics the orchestrator keeps. OTel instruments feed
// the configured exporters; the atomic tallies back the Stats snapshot so
// delivery numbers are reportable in-process as well.
type Metrics struct {
	published    metric.Int64Counter
	failed       metric.Int64Counter
	retries      metric.Int64Counter
	batchLatency metric.Float64Histogram
	batchSize    metric.Int64Histogram

	start      time.Time
	publishedN atomic.Int64
	failedN    atomic.Int64
	retriesN   atomic.Int64
}

// Stats is a point-in-time snapshot of publisher delivery metrics.
type Stats struct {
	Published int64
	Failed    int64
	Retries   int64

	// DeliveryRate is published transactions per second since the
	// publisher started.
	DeliveryRate float64
}

// NewMetrics creates the publisher instruments on the provided meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{start: time.Now()}
	var err error

	m.published, err = meter.Int64Counter("transactions_published_total",
		metric.WithDescription("Total transactions acknowledged by the sink"))
	if err != nil {
		return nil, err
	}

	m.failed, err = meter.Int64Counter("transactions_publish_failed_total",
		metric.WithDescription("Total transactions that permanently failed to publish"))
	if err != nil {
		return nil, err
	}

	m.retries, err = meter.Int64Counter("publish_retries_total",
		metric.WithDescription("Total batch send retries"))
	if err != nil {
		return nil, err
	}

	m.batchLatency, err = meter.Float64Histogram("batch_publish_latency_seconds",
		metric.WithDescription("End-to-end latency of one batch publish including backoff"))
	if err != nil {
		return nil, err
	}

	m.batchSize, err = meter.Int64Histogram("batch_size",
		metric.WithDescription("Transactions per published batch"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordResult(ctx context.Context, sink string, res Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("sink", sink))
	if res.Published > 0 {
		m.published.Add(ctx, int64(res.Published), attrs)
		m.publishedN.Add(int64(res.Published))
	}
	if res.Failed > 0 {
		m.failed.Add(ctx, int64(res.Failed), attrs)
		m.failedN.Add(int64(res.Failed))
	}
	m.batchLatency.Record(ctx, elapsed.Seconds(), attrs)
	m.batchSize.Record(ctx, int64(res.Published+res.Failed), attrs)
}

func (m *Metrics) recordRetry(ctx context.Context, sink string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("sink", sink)))
	m.retriesN.Add(1)
}

// Stats returns the current delivery tallies.
func (m *Metrics) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	published := m.publishedN.Load()
	elapsed := time.Since(m.start).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(published) / elapsed
	}
	return Stats{
		Published:    published,
		Failed:       m.failedN.Load(),
		Retries:      m.retriesN.Load(),
		DeliveryRate: rate,
	}
}
