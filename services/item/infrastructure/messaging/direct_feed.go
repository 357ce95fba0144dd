// Package messaging carries item changes over the in-process Watermill bus.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/itemfeed/pkg/events"
	"github.com/ghuser/itemfeed/pkg/logger"
	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
	itemevents "github.com/ghuser/itemfeed/services/item/domain/events"
	"github.com/ghuser/itemfeed/services/item/domain/repositories"
)

const tracerName = "github.com/ghuser/itemfeed/services/item/infrastructure/messaging"

// DirectFeed delivers every change immediately, with no debouncing.
// Enqueue publishes a ChangeRecord and returns once the consumer has handled
// it. Changes enqueued while nobody is subscribed are dropped.
//
// The consumer must not call Enqueue on the same feed; the publish would wait
// on its own ack.
type DirectFeed struct {
	bus     *events.Bus
	repo    repositories.ItemRepository
	log     logger.Logger
	tracer  trace.Tracer
	onPanic func(any)

	mu     sync.Mutex
	sub    *events.Subscription
	cancel context.CancelFunc
	closed bool
}

var _ events.Feed[itemevents.Change] = (*DirectFeed)(nil)

// NewDirectFeed returns a DirectFeed that resolves received records through repo.
// onPanic may be nil.
func NewDirectFeed(repo repositories.ItemRepository, log logger.Logger, onPanic func(any)) *DirectFeed {
	if log == nil {
		log = logger.Nop()
	}
	return &DirectFeed{
		bus:     events.NewBus(log),
		repo:    repo,
		log:     logger.Component(log, "events").With("feed", "direct"),
		tracer:  otel.Tracer(tracerName),
		onPanic: onPanic,
	}
}

// Enqueue publishes c and blocks until the consumer returns.
func (f *DirectFeed) Enqueue(c itemevents.Change) error {
	if c.Item == nil {
		return itemdomain.ErrNilItem
	}

	f.mu.Lock()
	closed, subscribed := f.closed, f.sub != nil
	f.mu.Unlock()
	if closed {
		return events.ErrClosed
	}
	if !subscribed {
		f.log.Debug("no consumer, change dropped", "item_id", c.Item.ID, "kind", c.Kind)
		return nil
	}

	payload, err := json.Marshal(c.Record())
	if err != nil {
		return fmt.Errorf("marshal change record: %w", err)
	}
	return f.bus.Publish(context.Background(), itemevents.TopicItemChanged, events.NewMessage(payload))
}

// Subscribe registers the one consumer.
func (f *DirectFeed) Subscribe(consumer func(itemevents.Change)) (*events.Subscription, error) {
	if consumer == nil {
		return nil, events.ErrNilConsumer
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, events.ErrClosed
	}
	if f.sub != nil {
		return nil, events.ErrAlreadySubscribed
	}

	ctx, cancel := context.WithCancel(context.Background())
	var sub *events.Subscription
	sub = events.NewSubscription(func() { f.unsubscribe(sub) })

	errCh, err := f.bus.Subscribe(ctx, itemevents.TopicItemChanged, f.handler(sub, consumer))
	if err != nil {
		cancel()
		return nil, err
	}
	go func() {
		for err := range errCh {
			f.log.Error("direct feed handler error", "error", err)
		}
	}()

	f.sub = sub
	f.cancel = cancel
	f.log.Debug("consumer subscribed")
	return sub, nil
}

func (f *DirectFeed) unsubscribe(sub *events.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != sub {
		return
	}
	f.cancel()
	f.sub = nil
	f.cancel = nil
	f.log.Debug("consumer unsubscribed")
}

func (f *DirectFeed) current(sub *events.Subscription) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sub == sub
}

// handler decodes a record and hands the live item to consumer. Records that
// cannot be resolved are logged and acked.
func (f *DirectFeed) handler(sub *events.Subscription, consumer func(itemevents.Change)) func(context.Context, *message.Message) error {
	return func(ctx context.Context, msg *message.Message) error {
		var rec itemevents.ChangeRecord
		if err := json.Unmarshal(msg.Payload, &rec); err != nil {
			f.log.ErrorContext(ctx, "undecodable change record", "error", err, "message_uuid", msg.UUID)
			return nil
		}
		if !f.current(sub) {
			return nil
		}
		item, err := f.repo.GetByID(ctx, rec.ItemID)
		if err != nil {
			f.log.WarnContext(ctx, "change for unknown item", "item_id", rec.ItemID, "error", err)
			return nil
		}
		f.deliver(ctx, consumer, itemevents.Change{Item: item, Kind: rec.Kind})
		return nil
	}
}

func (f *DirectFeed) deliver(ctx context.Context, consumer func(itemevents.Change), c itemevents.Change) {
	ctx, span := f.tracer.Start(ctx, "direct.deliver", trace.WithAttributes(
		attribute.String("item_id", c.Item.ID.String()),
		attribute.String("kind", c.Kind.String()),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "consumer panicked")
			f.log.ErrorContext(ctx, "consumer panicked", "panic", r, "stack", string(debug.Stack()))
			if f.onPanic != nil {
				f.onPanic(r)
			}
		}
	}()
	consumer(c)
}

// Pending is always zero: Enqueue returns only after delivery.
func (f *DirectFeed) Pending() int { return 0 }

// WaitIdle returns at once; there is never anything in flight between calls.
func (f *DirectFeed) WaitIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Ping(ctx)
}

// Ping reports ErrClosed once Close has been called.
func (f *DirectFeed) Ping(ctx context.Context) error {
	return f.bus.Ping(ctx)
}

// Close drops the consumer and shuts the bus down.
func (f *DirectFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	if f.cancel != nil {
		f.cancel()
	}
	f.sub = nil
	f.cancel = nil
	f.mu.Unlock()

	return f.bus.Close()
}
