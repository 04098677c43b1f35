// Package retention provides the bounded FIFO that remembers the live-path
// sets of recent ROP cycles so paths older than the retention period can be
// identified and removed.
package retention

// DefaultCapacity is used when the ROP period is zero or the retention
// period is shorter than one ROP.
const DefaultCapacity = 4

// Capacity returns floor(retentionMinutes/ropMinutes), or DefaultCapacity when
// ropMinutes is zero or retentionMinutes < ropMinutes.
func Capacity(ropMinutes, retentionMinutes int) int {
	if ropMinutes > 0 && retentionMinutes >= ropMinutes {
		return retentionMinutes / ropMinutes
	}
	return DefaultCapacity
}

// Window is a bounded FIFO of snapshots. Push evicts the oldest snapshot once
// the capacity is exceeded.
//
// Window is not safe for concurrent use; callers serialize access.
type Window[T any] struct {
	items    []T
	capacity int
}

// NewWindow creates a window holding at most capacity snapshots.
// A non-positive capacity is replaced by DefaultCapacity.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window[T]{
		items:    make([]T, 0, capacity+1),
		capacity: capacity,
	}
}

// Push appends snapshot. When the window grows beyond its capacity the oldest
// snapshot is removed and returned with ok set to true.
func (w *Window[T]) Push(snapshot T) (evicted T, ok bool) {
	w.items = append(w.items, snapshot)
	if len(w.items) <= w.capacity {
		return evicted, false
	}

	evicted = w.items[0]
	var zero T
	w.items[0] = zero
	w.items = w.items[1:]
	return evicted, true
}

// Len returns the number of retained snapshots.
func (w *Window[T]) Len() int {
	return len(w.items)
}

// Capacity returns the maximum number of retained snapshots.
func (w *Window[T]) Capacity() int {
	return w.capacity
}

// Each calls fn for every retained snapshot, oldest first.
func (w *Window[T]) Each(fn func(T)) {
	for _, item := range w.items {
		fn(item)
	}
}
