package simulator

import (
	"sync"
	"time"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
	"github.com/jamesenki/payments-ingestion-sub001/internal/publish"
)

// RunStats accumulates per-run counters. Only the orchestrator loop writes
// it, after each batch's publish outcome is known; Snapshot gives concurrent
// readers a consistent copy. Reset only happens with a new process.
type RunStats struct {
	mu         sync.Mutex
	startedAt  time.Time
	generated  int64
	published  int64
	failed     int64
	batches    int64
	violations map[model.ViolationKind]int64
}

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	Generated  int64
	Published  int64
	Failed     int64
	Batches    int64
	Violations map[model.ViolationKind]int64
	Elapsed    time.Duration
}

func newRunStats() *RunStats {
	return &RunStats{
		startedAt:  time.Now(),
		violations: make(map[model.ViolationKind]int64),
	}
}

func (s *RunStats) recordBatch(batch model.Batch, res publish.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated += int64(len(batch))
	s.published += int64(res.Published)
	s.failed += int64(res.Failed)
	s.batches++
	for _, tx := range batch {
		for _, v := range tx.Violations {
			s.violations[v.Kind]++
		}
	}
}

// Snapshot returns a copy safe to read while the run continues.
func (s *RunStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	violations := make(map[model.ViolationKind]int64, len(s.violations))
	for k, v := range s.violations {
		violations[k] = v
	}
	return Snapshot{
		Generated:  s.generated,
		Published:  s.published,
		Failed:     s.failed,
		Batches:    s.batches,
		Violations: violations,
		Elapsed:    time.Since(s.startedAt),
	}
}
