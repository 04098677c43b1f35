package notification

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sink is the ordered, append-only list of file notifications.
type Sink interface {
	// Append assigns the next id to n and stores it.
	Append(ctx context.Context, n Notice) (Record, error)

	// Query returns the matching records ordered by id.
	Query(ctx context.Context, f Filter) ([]Record, error)

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the sink.
	Close() error
}

// SinkError describes a failed sink operation.
type SinkError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("notification sink error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *SinkError) Unwrap() error {
	return e.Cause
}

// NewSinkError creates a new SinkError.
func NewSinkError(backend, operation string, cause error) *SinkError {
	return &SinkError{Backend: backend, Operation: operation, Cause: cause}
}

// MemorySink keeps notifications in process. Ids start just above the
// wall-clock milliseconds at construction time.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
	lastID  int64
}

// NewMemorySink creates an empty sink seeded from the current time.
func NewMemorySink() *MemorySink {
	return NewMemorySinkWithSeed(time.Now().UnixMilli())
}

// NewMemorySinkWithSeed creates an empty sink whose first id is seed+1.
func NewMemorySinkWithSeed(seed int64) *MemorySink {
	return &MemorySink{lastID: seed}
}

// Append stores n under the next id.
func (s *MemorySink) Append(ctx context.Context, n Notice) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	r := n.record(s.lastID)
	s.records = append(s.records, r)
	return r, nil
}

// Query returns matching records in id order.
func (s *MemorySink) Query(ctx context.Context, f Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, r := range s.records {
		if !f.Match(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *MemorySink) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *MemorySink) Close() error {
	return nil
}

var _ Sink = (*MemorySink)(nil)
