package publish

import (
	"context"
	"time"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// meteredSink records delivery metrics around a sink that does not track its
// own. BusSink is not wrapped: it records internally because only it sees
// per-attempt retries.
type meteredSink struct {
	inner   Sink
	metrics *Metrics
	name    string
}

// WithMetrics wraps sink so every publish outcome lands in metrics, labelled
// with the sink name. A nil metrics returns the sink unchanged.
func WithMetrics(sink Sink, metrics *Metrics, name string) Sink {
	if metrics == nil {
		return sink
	}
	return &meteredSink{inner: sink, metrics: metrics, name: name}
}

func (s *meteredSink) Publish(ctx context.Context, batch model.Batch) (Result, error) {
	start := time.Now()
	res, err := s.inner.Publish(ctx, batch)
	s.metrics.recordResult(ctx, s.name, res, time.Since(start))
	return res, err
}

func (s *meteredSink) Close() error { return s.inner.Close() }
