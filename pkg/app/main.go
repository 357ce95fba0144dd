// Package app is the composition root shared by cmd/api and cmd/worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghuser/itemfeed/pkg/config"
	"github.com/ghuser/itemfeed/pkg/events"
	"github.com/ghuser/itemfeed/pkg/logger"
	appsvcs "github.com/ghuser/itemfeed/services/item/application/services"
	"github.com/ghuser/itemfeed/services/item/application/view"
	itemevents "github.com/ghuser/itemfeed/services/item/domain/events"
	"github.com/ghuser/itemfeed/services/item/infrastructure/messaging"
	"github.com/ghuser/itemfeed/services/item/infrastructure/persistence/memory"
)

// Application holds the item feed and everything wired around it.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context
// methods and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "item added", "item_id", id)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Config     *config.Config
	Logger     logger.Logger
	Items      *appsvcs.Services
	Feed       events.Feed[itemevents.Change]
	Dispatcher *view.Dispatcher
	View       *view.Snapshot

	sub *events.Subscription
}

// Option tweaks New.
type Option func(*options)

type options struct {
	renderer view.Renderer
	onPanic  func(any)
}

// WithRenderer adds a renderer that receives every refresh after the
// built-in Snapshot.
func WithRenderer(r view.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithPanicHandler receives values recovered from consumer panics.
func WithPanicHandler(fn func(any)) Option {
	return func(o *options) { o.onPanic = fn }
}

// New builds the store, the feed selected by cfg.FeedMode, the view, and the
// item services, and subscribes the dispatcher to the feed.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	repo := memory.NewItemRepository()
	snapshot := view.NewSnapshot()

	var renderer view.Renderer = snapshot
	if o.renderer != nil {
		renderer = fanout{snapshot, o.renderer}
	}
	dispatcher := view.NewDispatcher(renderer, log)

	var feed events.Feed[itemevents.Change]
	switch cfg.FeedMode {
	case config.FeedDirect:
		feed = messaging.NewDirectFeed(repo, log, o.onPanic)
	case config.FeedDebounced, "":
		feed = events.NewDebouncer[itemevents.Change](
			events.WithName("items"),
			events.WithDelay(cfg.DebounceDelay),
			events.WithResetOnEnqueue(cfg.DebounceResetOnEnqueue),
			events.WithLogger(log),
			events.WithPanicHandler(o.onPanic),
		)
	default:
		return nil, fmt.Errorf("unknown feed mode %q", cfg.FeedMode)
	}

	sub, err := feed.Subscribe(dispatcher.Handle)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("subscribe dispatcher: %w", err), feed.Close())
	}

	log.Info("item feed ready",
		"mode", feedMode(cfg.FeedMode),
		"debounce_delay", cfg.DebounceDelay,
		"reset_on_enqueue", cfg.DebounceResetOnEnqueue,
	)

	return &Application{
		Config:     cfg,
		Logger:     log,
		Items:      appsvcs.New(repo, feed),
		Feed:       feed,
		Dispatcher: dispatcher,
		View:       snapshot,
		sub:        sub,
	}, nil
}

// Close waits for queued changes to be delivered (bounded by ctx), then
// releases the dispatcher and closes the feed.
func (a *Application) Close(ctx context.Context) error {
	drainErr := a.Feed.WaitIdle(ctx)
	if drainErr != nil && !errors.Is(drainErr, events.ErrClosed) {
		a.Logger.Warn("feed not drained before close",
			"pending", a.Feed.Pending(), "error", drainErr)
	}
	a.sub.Unsubscribe()
	if err := a.Feed.Close(); err != nil {
		return fmt.Errorf("close feed: %w", err)
	}
	return nil
}

func feedMode(m string) string {
	if m == "" {
		return config.FeedDebounced
	}
	return m
}

// fanout forwards every refresh to each renderer in order.
type fanout []view.Renderer

func (f fanout) ReloadAll(rows []view.Row) {
	for _, r := range f {
		r.ReloadAll(rows)
	}
}

func (f fanout) ReloadRow(index int, row view.Row) {
	for _, r := range f {
		r.ReloadRow(index, row)
	}
}
