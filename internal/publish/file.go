package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/jamesenki/payments-ingestion-sub001/internal/model"
)

// File output formats.
const (
	FormatNDJSON = "ndjson"
	FormatArray  = "array"
)

// FileSink appends serialized transactions to a local file, either as
// line-delimited records or as a single JSON array closed on Close.
type FileSink struct {
	mu     sync.Mutex
	f      *os.File
	format string
	wrote  bool
	closed bool
	logger *zap.Logger
}

// NewFileSink opens path for writing. With appendFile false the file is
// truncated first.
func NewFileSink(path string, appendFile bool, format string, logger *zap.Logger) (*FileSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == "" {
		format = FormatNDJSON
	}
	if format != FormatNDJSON && format != FormatArray {
		return nil, fmt.Errorf("unknown file sink format %q", format)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendFile && format == FormatNDJSON {
		flags |= os.O_APPEND
	} else {
		// Array output owns the whole file; appending to a closed array
		// would corrupt it.
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink file %s: %w", path, err)
	}
	return &FileSink{f: f, format: format, logger: logger}, nil
}

func (s *FileSink) Publish(_ context.Context, batch model.Batch) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{Failed: len(batch), FailedItems: batch.IDs(), Attempts: 1},
			fmt.Errorf("sink closed: %w", ErrPermanent)
	}

	for i, tx := range batch {
		data, err := json.Marshal(tx)
		if err != nil {
			// Serialization failure is not retryable; report everything
			// from this record onward as failed.
			failed := batch[i:]
			return Result{
				Published:   i,
				Failed:      len(failed),
				FailedItems: failed.IDs(),
				Attempts:    1,
			}, fmt.Errorf("marshal transaction %s: %v: %w", tx.ID, err, ErrPermanent)
		}
		if err := s.write(data); err != nil {
			failed := batch[i:]
			return Result{
				Published:   i,
				Failed:      len(failed),
				FailedItems: failed.IDs(),
				Attempts:    1,
			}, fmt.Errorf("write transaction %s: %v: %w", tx.ID, err, ErrPermanent)
		}
	}
	return Result{Published: len(batch), Attempts: 1}, nil
}

func (s *FileSink) write(data []byte) error {
	switch s.format {
	case FormatArray:
		sep := ",\n  "
		if !s.wrote {
			sep = "[\n  "
		}
		if _, err := s.f.WriteString(sep); err != nil {
			return err
		}
		if _, err := s.f.Write(data); err != nil {
			return err
		}
	default:
		if _, err := s.f.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	s.wrote = true
	return nil
}

// Close terminates the array wrapper when needed and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.format == FormatArray {
		terminator := "[]\n"
		if s.wrote {
			terminator = "\n]\n"
		}
		if _, err := s.f.WriteString(terminator); err != nil {
			s.f.Close()
			return err
		}
	}
	return s.f.Close()
}
