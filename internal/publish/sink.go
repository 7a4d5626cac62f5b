// Package publish delivers transaction batches to a pluggable sink with
// retry, backoff and delivery metrics. Variants: in-memory (testing),
// file-append, and a message-bus sink wrapping an externally provisioned
// endpoint.
package publish

import (
	"context"
	"errors"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// Result reports the outcome of one batch publish.
type Result struct {
	// Published and Failed count transactions, not batches.
	Published int
	Failed    int

	// FailedItems lists the transaction ids that were not delivered.
	FailedItems []string

	// Attempts is how many sends were made for the batch, including the
	// final one.
	Attempts int
}

// Sink is the publish destination. Publish never silently drops data: every
// transaction is accounted for in the Result, and a non-nil error means the
// failed items are permanently failed as far as this process is concerned.
type Sink interface {
	Publish(ctx context.Context, batch model.Batch) (Result, error)
	Close() error
}

// ErrPermanent marks a batch that exhausted its retry budget or hit a
// non-retryable failure. The caller decides what to do with the failed
// items; a dead-letter path is outside this layer.
var ErrPermanent = errors.New("permanent publish failure")

// TransientError wraps a sink failure that is worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
