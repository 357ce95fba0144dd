package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/itemfeed/pkg/logger"
)

// DefaultDelay is the debounce window used when WithDelay is not given.
const DefaultDelay = 50 * time.Millisecond

// State is the scheduler state.
type State int

const (
	// Idle: no timer armed.
	Idle State = iota
	// Armed: a delivery timer is pending.
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	name           string
	delay          time.Duration
	resetOnEnqueue bool
	log            logger.Logger
	onPanic        func(recovered any)
}

// WithName labels log lines, spans and metrics. Defaults to "debounced".
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDelay sets the debounce window D. Non-positive values are ignored.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithResetOnEnqueue controls what an Enqueue does while a timer is already
// armed. true (the default) restarts the window on every Enqueue, so a
// steady stream of enqueues postpones the next delivery for as long as it
// lasts. false leaves an armed timer alone and only arms from Idle.
func WithResetOnEnqueue(reset bool) Option {
	return func(o *options) { o.resetOnEnqueue = reset }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithPanicHandler is called with the recovered value when the consumer
// panics. The event counts as delivered and the scheduler keeps running.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(o *options) { o.onPanic = fn }
}

type entry[T any] struct {
	value      T
	enqueuedAt time.Time
}

// Debouncer releases queued events to a single consumer, one per debounce
// window.
//
// One goroutine owns the timer. It pops exactly one event per timer fire,
// calls the consumer synchronously, and re-arms while events remain, so the
// consumer is never called concurrently with itself and consecutive
// deliveries are at least one window apart.
//
//	Idle  --Enqueue-->           Armed
//	Armed --Enqueue-->           Armed (timer restarted)
//	Armed --fire, queue left-->  Armed
//	Armed --fire, queue empty--> Idle
//
// Events enqueued while no consumer is subscribed stay queued until one is.
type Debouncer[T any] struct {
	opts    options
	log     logger.Logger
	queue   *Queue[entry[T]]
	metrics *feedMetrics
	tracer  trace.Tracer

	// kick has one slot. Enqueue writes it after pushing; a full slot
	// already guarantees the loop will look at the queue again.
	kick   chan struct{}
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	mu       sync.Mutex
	state    State
	consumer func(T)
	sub      *Subscription
	closed   bool
	// idle is closed while the queue is drained and the scheduler is Idle.
	idle       chan struct{}
	idleClosed bool
}

// NewDebouncer starts the scheduler goroutine. Call Close to stop it.
func NewDebouncer[T any](opts ...Option) *Debouncer[T] {
	o := options{
		name:           "debounced",
		delay:          DefaultDelay,
		resetOnEnqueue: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}

	idle := make(chan struct{})
	close(idle)

	d := &Debouncer[T]{
		opts:       o,
		log:        logger.Component(o.log, "events").With("feed", o.name),
		queue:      NewQueue[entry[T]](),
		metrics:    newFeedMetrics(o.name),
		tracer:     otel.Tracer(instrumentationName),
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		idle:       idle,
		idleClosed: true,
	}
	go d.run()
	return d
}

// Delay returns the debounce window.
func (d *Debouncer[T]) Delay() time.Duration {
	return d.opts.delay
}

// Enqueue appends v to the tail of the queue and wakes the scheduler. It
// never blocks on the consumer. Returns ErrClosed after Close.
func (d *Debouncer[T]) Enqueue(v T) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.queue.Push(entry[T]{value: v, enqueuedAt: time.Now()})
	if d.idleClosed {
		d.idle = make(chan struct{})
		d.idleClosed = false
	}
	d.mu.Unlock()

	d.metrics.recordEnqueue(context.Background())
	d.signal()
	return nil
}

// Subscribe registers consumer. Only one consumer may be registered at a
// time; a second call returns ErrAlreadySubscribed until the first
// Subscription is released.
//
// After Unsubscribe returns, at most one delivery that had already been
// popped may still reach the old consumer. Close waits for it.
func (d *Debouncer[T]) Subscribe(consumer func(T)) (*Subscription, error) {
	if consumer == nil {
		return nil, ErrNilConsumer
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.sub != nil {
		return nil, ErrAlreadySubscribed
	}

	var sub *Subscription
	sub = NewSubscription(func() { d.unsubscribe(sub) })
	d.sub = sub
	d.consumer = consumer

	if d.queue.HasPending() {
		d.signal()
	}
	d.log.Debug("consumer subscribed", "pending", d.queue.Len())
	return sub, nil
}

func (d *Debouncer[T]) unsubscribe(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sub != sub {
		return
	}
	d.sub = nil
	d.consumer = nil
	d.log.Debug("consumer unsubscribed", "pending", d.queue.Len())
}

// State reports whether a delivery timer is armed.
func (d *Debouncer[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending reports the number of queued events.
func (d *Debouncer[T]) Pending() int {
	return d.queue.Len()
}

// WaitIdle blocks until the queue is drained and the scheduler is Idle, ctx
// is done, or the Debouncer is closed.
func (d *Debouncer[T]) WaitIdle(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.exited:
		if d.queue.HasPending() {
			return ErrClosed
		}
		return nil
	}
}

// Ping reports ErrClosed once Close has been called.
func (d *Debouncer[T]) Ping(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// Close invalidates any armed timer and stops the scheduler goroutine. When
// Close returns the consumer will not be called again. Events still queued
// are discarded. Close must not be called from inside the consumer.
func (d *Debouncer[T]) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.consumer = nil
		d.sub = nil
		pending := d.queue.Len()
		d.mu.Unlock()

		close(d.done)
		if pending > 0 {
			d.log.Warn("closing with undelivered events", "pending", pending)
		}
	})
	<-d.exited
	return nil
}

func (d *Debouncer[T]) signal() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

func (d *Debouncer[T]) run() {
	defer close(d.exited)

	timer := time.NewTimer(d.opts.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-d.kick:
			d.arm(timer)
		case <-timer.C:
			d.fire(timer)
		}
	}
}

// arm handles an Enqueue or Subscribe wake-up.
func (d *Debouncer[T]) arm(timer *time.Timer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.queue.HasPending() {
		return
	}
	if d.state == Armed && !d.opts.resetOnEnqueue {
		return
	}
	timer.Reset(d.opts.delay)
	d.state = Armed
}

// fire pops and delivers one event, then re-arms or goes Idle.
func (d *Debouncer[T]) fire(timer *time.Timer) {
	d.mu.Lock()
	consumer := d.consumer
	if consumer == nil {
		// Nobody to deliver to; Subscribe wakes the loop again.
		d.state = Idle
		d.mu.Unlock()
		return
	}
	e, ok := d.queue.Pop()
	d.mu.Unlock()

	if ok {
		d.metrics.recordPop(context.Background())
		d.deliver(consumer, e)
	}

	// Enqueue pushes under d.mu, so this check and the Idle flip are atomic
	// with respect to producers.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue.HasPending() {
		timer.Reset(d.opts.delay)
		d.state = Armed
		return
	}
	d.state = Idle
	if !d.idleClosed {
		close(d.idle)
		d.idleClosed = true
	}
}

func (d *Debouncer[T]) deliver(consumer func(T), e entry[T]) {
	ctx, span := d.tracer.Start(context.Background(), d.opts.name+".deliver",
		trace.WithAttributes(attribute.String("feed", d.opts.name)))
	defer span.End()

	wait := time.Since(e.enqueuedAt)
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "consumer panicked")
			d.log.ErrorContext(ctx, "consumer panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if d.opts.onPanic != nil {
				d.opts.onPanic(r)
			}
		}
		d.metrics.recordDelivery(ctx, wait)
	}()

	d.log.DebugContext(ctx, "delivering", "queue_wait_ms", wait.Milliseconds(), "pending", d.queue.Len())
	consumer(e.value)
}
