package publish

import (
	"context"
	"sync"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// MemorySink keeps published batches in memory. It doubles as the mock sink
// for tests: FailNext scripts upcoming failures.
type MemorySink struct {
	mu       sync.Mutex
	batches  []model.Batch
	failures int
	failErr  error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailNext makes the next n Publish calls fail with err.
func (s *MemorySink) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.failErr = err
}

func (s *MemorySink) Publish(_ context.Context, batch model.Batch) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return Result{
			Failed:      len(batch),
			FailedItems: batch.IDs(),
			Attempts:    1,
		}, s.failErr
	}

	// Copy the slice header so the caller may recycle its batch.
	kept := make(model.Batch, len(batch))
	copy(kept, batch)
	s.batches = append(s.batches, kept)

	return Result{Published: len(batch), Attempts: 1}, nil
}

func (s *MemorySink) Close() error { return nil }

// Batches returns the batches published so far.
func (s *MemorySink) Batches() []model.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Batch, len(s.batches))
	copy(out, s.batches)
	return out
}

// Published returns the total transactions accepted.
func (s *MemorySink) Published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}
