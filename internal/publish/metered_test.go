package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestWithMetrics_recordsSuccessAndFailure(t *testing.T) {
	metrics, err := NewMetrics(otel.Meter("test"))
	require.NoError(t, err)

	inner := NewMemorySink()
	sink := WithMetrics(inner, metrics, "memory")

	_, err = sink.Publish(context.Background(), testBatch(3))
	require.NoError(t, err)

	inner.FailNext(1, Transient(errors.New("down")))
	_, err = sink.Publish(context.Background(), testBatch(2))
	require.Error(t, err)

	stats := metrics.Stats()
	require.Equal(t, int64(3), stats.Published)
	require.Equal(t, int64(2), stats.Failed)
	require.Greater(t, stats.DeliveryRate, 0.0)
}

func TestWithMetrics_nilMetricsReturnsSinkUnchanged(t *testing.T) {
	inner := NewMemorySink()
	require.Same(t, Sink(inner), WithMetrics(inner, nil, "memory"))
}
