package events

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by feeds that have been shut down.
	ErrClosed = errors.New("events: feed closed")

	// ErrAlreadySubscribed is returned when a second consumer tries to
	// register on a single-consumer feed.
	ErrAlreadySubscribed = errors.New("events: feed already has a consumer")

	// ErrNilConsumer is returned by Subscribe when consumer is nil.
	ErrNilConsumer = errors.New("events: consumer is nil")
)

// Feed is an ordered single-consumer event stream.
type Feed[T any] interface {
	// Enqueue hands v to the feed. It never blocks on the consumer for the
	// debounced feed; it returns ErrClosed after Close.
	Enqueue(v T) error
	// Subscribe registers the one consumer.
	Subscribe(consumer func(T)) (*Subscription, error)
	// Pending reports events accepted but not yet delivered.
	Pending() int
	// WaitIdle blocks until every accepted event has been delivered.
	WaitIdle(ctx context.Context) error
	// Ping reports ErrClosed once the feed is shut down.
	Ping(ctx context.Context) error
	Close() error
}

// Subscription is the token returned by Subscribe. It does not own the
// feed or the consumer; Unsubscribe only releases the registration and is
// safe to call more than once.
type Subscription struct {
	once    sync.Once
	release func()
}

// NewSubscription wraps release so it runs at most once.
func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

// Unsubscribe releases the registration.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}
