// Package events holds the in-process event plumbing: an unbounded FIFO
// Queue, the Debouncer that releases it to a single consumer at a bounded
// rate, and a Watermill GoChannel Bus for immediate pass-through delivery.
//
// Bus delivery semantics:
//   - Publish blocks until every subscriber has acked the message, so a
//     single publisher observes strict ordering and at most one message is
//     in flight per subscriber.
//   - Messages published while a topic has no subscriber are dropped.
//   - A handler error is retried with exponential backoff; after the last
//     attempt the message is acked anyway and the error goes to the returned
//     channel. A Nack would make GoChannel redeliver it at once, forever.
//
// OTel trace context is injected into message metadata on Publish and
// extracted in Subscribe.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/itemfeed/pkg/logger"
)

const (
	maxRetries      = 3
	retryBaseDelay  = 10 * time.Millisecond
	shutdownTimeout = 5 * time.Second
	errBufferSize   = 16
)

// Bus is an in-process pub/sub built on Watermill's GoChannel.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    logger.Logger
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewBus returns a Bus whose publishers wait for subscriber acks.
func NewBus(log logger.Logger) *Bus {
	log = logger.Component(log, "bus")
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, &slogAdapter{log: log})
	return &Bus{pubsub: pubsub, log: log}
}

// NewMessage builds a message with a fresh UUID.
func NewMessage(payload []byte) *message.Message {
	return message.NewMessage(watermill.NewUUID(), payload)
}

// Publish sends msgs to topic and returns once subscribers have acked them.
func (b *Bus) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if b.isClosed() {
		return ErrClosed
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for _, msg := range msgs {
		for k, v := range carrier {
			msg.Metadata.Set(k, v)
		}
	}
	if err := b.pubsub.Publish(topic, msgs...); err != nil { //nolint:contextcheck
		return fmt.Errorf("events: publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe runs handler for every message on topic, one at a time, until
// ctx is cancelled or the Bus is closed.
//
// Ack/Nack is managed by the bus:
//   - handler returns nil   → Ack
//   - handler returns error → retried up to maxRetries with backoff
//   - retries exhausted     → Ack + error sent to the returned channel
//
// The returned channel is closed when the subscription ends. Callers must
// drain it; errors that do not fit in its buffer are logged and dropped.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}

	ch, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, errBufferSize)
	propagator := otel.GetTextMapPropagator()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(errCh)

		for msg := range ch {
			carrier := propagation.MapCarrier{}
			for k, v := range msg.Metadata {
				carrier[k] = v
			}
			msgCtx := propagator.Extract(ctx, carrier)

			if err := retryWithBackoff(msgCtx, msg, handler, maxRetries, retryBaseDelay, b.log); err != nil {
				select {
				case errCh <- err:
				default:
					b.log.ErrorContext(msgCtx, "error channel full, dropping error",
						"error", err, "topic", topic)
				}
				continue
			}
			msg.Ack()
		}
	}()

	return errCh, nil
}

// retryWithBackoff calls handler up to maxRetries times with exponential backoff.
// Returns nil on first success; returns the last error after all retries exhaust.
func retryWithBackoff(
	ctx context.Context,
	msg *message.Message,
	handler func(context.Context, *message.Message) error,
	maxRetries int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if attempt < maxRetries {
			log.WarnContext(ctx, "handler failed, retrying",
				"attempt", attempt,
				"max_retries", maxRetries,
				"next_delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return fmt.Errorf("events: handler failed after %d retries: %w", maxRetries, err)
}

// Ping reports ErrClosed once the Bus is closed.
func (b *Bus) Ping(_ context.Context) error {
	if b.isClosed() {
		return ErrClosed
	}
	return nil
}

// Close stops all subscriptions and waits (bounded) for in-flight handlers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("events: close pubsub: %w", err)
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		b.log.Error("timed out waiting for in-flight handlers to complete")
	}
	return nil
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// slogAdapter bridges logger.Logger to watermill.LoggerAdapter.
type slogAdapter struct{ log logger.Logger }

func (a *slogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(fieldsToArgs(fields), "error", err)...)
}
func (a *slogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, fieldsToArgs(fields)...)
}
func (a *slogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &slogAdapter{log: a.log.With(fieldsToArgs(fields)...)}
}

func fieldsToArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
