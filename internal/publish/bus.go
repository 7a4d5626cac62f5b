package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// BusClient is the externally provisioned message-bus endpoint. The sink
// never creates or tears it down; it only sends batches through it. Errors
// wrapped with Transient are retried, anything else is permanent.
type BusClient interface {
	Send(ctx context.Context, messages [][]byte) error
}

// BusOptions tunes the retry policy of a BusSink.
type BusOptions struct {
	// MaxAttempts bounds sends per batch, including the first.
	MaxAttempts int
	// BackoffBase is the delay before the first retry; it doubles each
	// attempt and is capped at BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func (o *BusOptions) fillDefaults() {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 5
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 100 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Second
	}
}

// BusSink publishes batches to a message bus with bounded retries and
// exponential backoff. The caller is blocked at most for the current batch's
// backoff window; there is no cross-batch queueing.
type BusSink struct {
	client  BusClient
	opts    BusOptions
	metrics *Metrics
	logger  *zap.Logger
}

// NewBusSink wraps the provisioned client. metrics may be nil.
func NewBusSink(client BusClient, opts BusOptions, metrics *Metrics, logger *zap.Logger) *BusSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.fillDefaults()
	return &BusSink{client: client, opts: opts, metrics: metrics, logger: logger}
}

// Attempt lifecycle. Acked and failed are terminal.
func newAttemptFSM() *fsm.FSM {
	return fsm.NewFSM(
		"pending",
		fsm.Events{
			{Name: "send", Src: []string{"pending", "retry_wait"}, Dst: "sending"},
			{Name: "ack", Src: []string{"sending"}, Dst: "acked"},
			{Name: "retry", Src: []string{"sending"}, Dst: "retry_wait"},
			{Name: "fail", Src: []string{"sending", "retry_wait"}, Dst: "failed"},
		},
		fsm.Callbacks{},
	)
}

func (s *BusSink) Publish(ctx context.Context, batch model.Batch) (Result, error) {
	start := time.Now()

	messages := make([][]byte, 0, len(batch))
	for _, tx := range batch {
		data, err := json.Marshal(tx)
		if err != nil {
			res := Result{Failed: len(batch), FailedItems: batch.IDs(), Attempts: 0}
			s.metrics.recordResult(ctx, "bus", res, time.Since(start))
			return res, fmt.Errorf("marshal transaction %s: %v: %w", tx.ID, err, ErrPermanent)
		}
		messages = append(messages, data)
	}

	state := newAttemptFSM()
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		_ = state.Event(ctx, "send")
		attempts = attempt

		lastErr = s.client.Send(ctx, messages)
		if lastErr == nil {
			_ = state.Event(ctx, "ack")
			res := Result{Published: len(batch), Attempts: attempt}
			s.metrics.recordResult(ctx, "bus", res, time.Since(start))
			return res, nil
		}

		if !IsTransient(lastErr) {
			s.logger.Error("bus send failed permanently",
				zap.Int("attempt", attempt),
				zap.Int("batch_size", len(batch)),
				zap.Error(lastErr))
			break
		}

		if attempt == s.opts.MaxAttempts {
			break
		}

		_ = state.Event(ctx, "retry")
		s.metrics.recordRetry(ctx, "bus")
		delay := s.backoff(attempt)
		s.logger.Warn("bus send failed, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr))

		// Cancellation is observed here, at the backoff boundary.
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = state.Event(ctx, "fail")
			res := Result{Failed: len(batch), FailedItems: batch.IDs(), Attempts: attempt}
			s.metrics.recordResult(ctx, "bus", res, time.Since(start))
			return res, fmt.Errorf("publish cancelled: %v: %w", ctx.Err(), ErrPermanent)
		}
	}

	_ = state.Event(ctx, "fail")
	res := Result{Failed: len(batch), FailedItems: batch.IDs(), Attempts: attempts}
	s.metrics.recordResult(ctx, "bus", res, time.Since(start))
	return res, fmt.Errorf("bus publish failed after %d attempt(s): %v: %w", attempts, lastErr, ErrPermanent)
}

func (s *BusSink) backoff(attempt int) time.Duration {
	d := s.opts.BackoffBase << (attempt - 1)
	if d > s.opts.BackoffMax || d <= 0 {
		d = s.opts.BackoffMax
	}
	return d
}

func (s *BusSink) Close() error { return nil }
