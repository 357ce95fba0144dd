package events

import "sync"

// compactThreshold is how many popped slots may accumulate at the head of the
// backing slice before Pop moves the live tail down.
const compactThreshold = 64

// Queue is an unbounded FIFO safe for any number of concurrent producers
// and consumers. Push never blocks and never fails.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

// NewQueue returns an empty Queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v to the tail.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// Pop removes and returns the head. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return v, false
	}
	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true
}

// Len reports the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// HasPending reports whether at least one value is queued.
func (q *Queue[T]) HasPending() bool {
	return q.Len() > 0
}
