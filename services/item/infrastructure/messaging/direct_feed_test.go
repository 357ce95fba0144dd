package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ghuser/itemfeed/pkg/events"
	"github.com/ghuser/itemfeed/pkg/logger"
	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
	itemevents "github.com/ghuser/itemfeed/services/item/domain/events"
	"github.com/ghuser/itemfeed/services/item/domain/models"
	"github.com/ghuser/itemfeed/services/item/infrastructure/persistence/memory"
)

type changeLog struct {
	mu  sync.Mutex
	got []itemevents.Change
}

func (c *changeLog) consume(ch itemevents.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, ch)
}

func (c *changeLog) changes() []itemevents.Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]itemevents.Change(nil), c.got...)
}

func newFeed(t *testing.T) (*DirectFeed, *memory.ItemRepository) {
	t.Helper()
	repo := memory.NewItemRepository()
	feed := NewDirectFeed(repo, logger.Nop(), nil)
	t.Cleanup(func() { _ = feed.Close() })
	return feed, repo
}

func mustCreate(t *testing.T, repo *memory.ItemRepository, name string) *models.Item {
	t.Helper()
	item, err := repo.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return item
}

func TestDirectFeed_DeliversBeforeEnqueueReturns(t *testing.T) {
	feed, repo := newFeed(t)
	item := mustCreate(t, repo, "a")

	var log changeLog
	if _, err := feed.Subscribe(log.consume); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	kinds := []itemevents.ChangeKind{itemevents.NewItem, itemevents.CountChanged, itemevents.NameChanged}
	for i, kind := range kinds {
		if err := feed.Enqueue(itemevents.Change{Item: item, Kind: kind}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		got := log.changes()
		if len(got) != i+1 {
			t.Fatalf("after Enqueue %d: %d deliveries", i, len(got))
		}
		if got[i].Kind != kind {
			t.Errorf("delivery %d kind = %v, want %v", i, got[i].Kind, kind)
		}
		if got[i].Item != item {
			t.Errorf("delivery %d did not resolve to the live item", i)
		}
	}
	if feed.Pending() != 0 {
		t.Errorf("Pending = %d", feed.Pending())
	}
	if err := feed.WaitIdle(context.Background()); err != nil {
		t.Errorf("WaitIdle: %v", err)
	}
}

func TestDirectFeed_ConsumerSeesCurrentState(t *testing.T) {
	feed, repo := newFeed(t)
	item := mustCreate(t, repo, "a")

	var seen int
	if _, err := feed.Subscribe(func(c itemevents.Change) { seen = c.Item.Count() }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	item.AddCount(4)
	if err := feed.Enqueue(itemevents.Change{Item: item, Kind: itemevents.CountChanged}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if seen != 4 {
		t.Errorf("consumer saw count %d, want 4", seen)
	}
}

func TestDirectFeed_DropsWithoutConsumer(t *testing.T) {
	feed, repo := newFeed(t)
	item := mustCreate(t, repo, "a")

	if err := feed.Enqueue(itemevents.Change{Item: item, Kind: itemevents.NewItem}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var log changeLog
	if _, err := feed.Subscribe(log.consume); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if n := len(log.changes()); n != 0 {
		t.Errorf("got %d deliveries of a change sent before Subscribe", n)
	}
}

func TestDirectFeed_UnknownItemIsSkipped(t *testing.T) {
	feed, _ := newFeed(t)

	var log changeLog
	if _, err := feed.Subscribe(log.consume); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	stray := models.NewItem("not stored")
	if err := feed.Enqueue(itemevents.Change{Item: stray, Kind: itemevents.CountChanged}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if n := len(log.changes()); n != 0 {
		t.Errorf("got %d deliveries for an unknown item", n)
	}
}

func TestDirectFeed_NilItem(t *testing.T) {
	feed, _ := newFeed(t)
	err := feed.Enqueue(itemevents.Change{Kind: itemevents.NewItem})
	if !errors.Is(err, itemdomain.ErrNilItem) {
		t.Errorf("expected ErrNilItem, got %v", err)
	}
}

func TestDirectFeed_SingleConsumer(t *testing.T) {
	feed, repo := newFeed(t)
	item := mustCreate(t, repo, "a")

	if _, err := feed.Subscribe(nil); !errors.Is(err, events.ErrNilConsumer) {
		t.Errorf("nil consumer: got %v", err)
	}

	var first, second changeLog
	sub, err := feed.Subscribe(first.consume)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := feed.Subscribe(second.consume); !errors.Is(err, events.ErrAlreadySubscribed) {
		t.Fatalf("second Subscribe: got %v", err)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if _, err := feed.Subscribe(second.consume); err != nil {
		t.Fatalf("Subscribe after Unsubscribe: %v", err)
	}
	if err := feed.Enqueue(itemevents.Change{Item: item, Kind: itemevents.NewItem}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if n := len(first.changes()); n != 0 {
		t.Errorf("released consumer got %d deliveries", n)
	}
	if n := len(second.changes()); n != 1 {
		t.Errorf("new consumer got %d deliveries, want 1", n)
	}
}

func TestDirectFeed_ConsumerPanic(t *testing.T) {
	repo := memory.NewItemRepository()
	var recovered []any
	feed := NewDirectFeed(repo, logger.Nop(), func(r any) { recovered = append(recovered, r) })
	defer feed.Close() //nolint:errcheck

	item := mustCreate(t, repo, "a")
	calls := 0
	if _, err := feed.Subscribe(func(itemevents.Change) {
		calls++
		if calls == 1 {
			panic("boom")
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for range 2 {
		if err := feed.Enqueue(itemevents.Change{Item: item, Kind: itemevents.CountChanged}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("consumer calls = %d, want 2", calls)
	}
	if len(recovered) != 1 || recovered[0] != "boom" {
		t.Errorf("panic handler got %v", recovered)
	}
}

func TestDirectFeed_Close(t *testing.T) {
	feed, repo := newFeed(t)
	item := mustCreate(t, repo, "a")

	if err := feed.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := feed.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := feed.Enqueue(itemevents.Change{Item: item, Kind: itemevents.NewItem}); !errors.Is(err, events.ErrClosed) {
		t.Errorf("Enqueue: got %v", err)
	}
	if _, err := feed.Subscribe(func(itemevents.Change) {}); !errors.Is(err, events.ErrClosed) {
		t.Errorf("Subscribe: got %v", err)
	}
	if err := feed.Ping(context.Background()); !errors.Is(err, events.ErrClosed) {
		t.Errorf("Ping: got %v", err)
	}
	if err := feed.WaitIdle(context.Background()); !errors.Is(err, events.ErrClosed) {
		t.Errorf("WaitIdle: got %v", err)
	}
}
