package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/itemfeed/pkg/events"
	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
	itemevents "github.com/ghuser/itemfeed/services/item/domain/events"
	"github.com/ghuser/itemfeed/services/item/infrastructure/persistence/memory"
)

// fakeFeed records every change and optionally fails.
type fakeFeed struct {
	mu      sync.Mutex
	changes []itemevents.Change
	err     error
}

func (f *fakeFeed) Enqueue(c itemevents.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.changes = append(f.changes, c)
	return nil
}

func newService() (*ItemService, *fakeFeed) {
	feed := &fakeFeed{}
	return NewItemService(memory.NewItemRepository(), feed), feed
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()

	tests := []struct {
		name     string
		input    string
		wantName string
	}{
		{"explicit name", "apples", "apples"},
		{"trimmed name", "  pears ", "pears"},
		{"generated from count", "", "newItem 2"},
		{"whitespace only is generated", "   ", "newItem 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := svc.AddItem(ctx, tt.input)
			if err != nil {
				t.Fatalf("AddItem: %v", err)
			}
			if item.Name() != tt.wantName {
				t.Errorf("name = %q, want %q", item.Name(), tt.wantName)
			}
			if item.Count() != 0 {
				t.Errorf("count = %d, want 0", item.Count())
			}
			last := feed.changes[len(feed.changes)-1]
			if last.Kind != itemevents.NewItem || last.Item != item {
				t.Errorf("last change = %+v", last)
			}
		})
	}
}

func TestIncrementCount(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()

	item, _ := svc.AddItem(ctx, "a")
	for range 3 {
		if _, err := svc.IncrementCount(ctx, item.ID); err != nil {
			t.Fatalf("IncrementCount: %v", err)
		}
	}
	if item.Count() != 3 {
		t.Errorf("count = %d, want 3", item.Count())
	}
	if len(feed.changes) != 4 {
		t.Fatalf("changes = %d, want 4", len(feed.changes))
	}
	for _, c := range feed.changes[1:] {
		if c.Kind != itemevents.CountChanged || c.Item != item {
			t.Errorf("change = %+v", c)
		}
	}

	if _, err := svc.IncrementCount(ctx, uuid.New()); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Errorf("unknown id: got %v", err)
	}
}

func TestIncrementLast(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()

	if _, err := svc.IncrementLast(ctx); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("empty store: got %v", err)
	}

	first, _ := svc.AddItem(ctx, "a")
	second, _ := svc.AddItem(ctx, "b")
	got, err := svc.IncrementLast(ctx)
	if err != nil {
		t.Fatalf("IncrementLast: %v", err)
	}
	if got != second || second.Count() != 1 || first.Count() != 0 {
		t.Errorf("counts first=%d second=%d", first.Count(), second.Count())
	}
	if last := feed.changes[len(feed.changes)-1]; last.Item != second || last.Kind != itemevents.CountChanged {
		t.Errorf("last change = %+v", last)
	}
}

func TestIncrementAllCounts(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()

	if n, err := svc.IncrementAllCounts(ctx); err != nil || n != 0 {
		t.Fatalf("empty store: n=%d err=%v", n, err)
	}

	a, _ := svc.AddItem(ctx, "a")
	b, _ := svc.AddItem(ctx, "b")
	c, _ := svc.AddItem(ctx, "c")
	feed.changes = nil

	n, err := svc.IncrementAllCounts(ctx)
	if err != nil {
		t.Fatalf("IncrementAllCounts: %v", err)
	}
	if n != 3 {
		t.Errorf("updated = %d, want 3", n)
	}
	for i, want := range []uuid.UUID{a.ID, b.ID, c.ID} {
		got := feed.changes[i]
		if got.Item.ID != want || got.Kind != itemevents.CountChanged {
			t.Errorf("change %d = %+v", i, got)
		}
		if got.Item.Count() != 1 {
			t.Errorf("item %d count = %d", i, got.Item.Count())
		}
	}
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()
	item, _ := svc.AddItem(ctx, "a")

	tests := []struct {
		name    string
		id      uuid.UUID
		newName string
		wantErr error
	}{
		{"renames", item.ID, "b", nil},
		{"empty name", item.ID, " ", itemdomain.ErrInvalidItemName},
		{"unknown item", uuid.New(), "c", itemdomain.ErrItemNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rename(ctx, tt.id, tt.newName)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
	if item.Name() != "b" {
		t.Errorf("name = %q", item.Name())
	}
	if last := feed.changes[len(feed.changes)-1]; last.Kind != itemevents.NameChanged {
		t.Errorf("last change kind = %v", last.Kind)
	}
}

func TestFeedErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()
	item, _ := svc.AddItem(ctx, "a")
	feed.err = events.ErrClosed

	if _, err := svc.AddItem(ctx, "b"); !errors.Is(err, events.ErrClosed) {
		t.Errorf("AddItem: got %v", err)
	}
	if _, err := svc.IncrementCount(ctx, item.ID); !errors.Is(err, events.ErrClosed) {
		t.Errorf("IncrementCount: got %v", err)
	}
	if n, err := svc.IncrementAllCounts(ctx); !errors.Is(err, events.ErrClosed) || n != 0 {
		t.Errorf("IncrementAllCounts: n=%d err=%v", n, err)
	}
}

func TestGetAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	a, _ := svc.AddItem(ctx, "a")
	b, _ := svc.AddItem(ctx, "b")

	got, err := svc.Get(ctx, b.ID)
	if err != nil || got != b {
		t.Fatalf("Get: %v %v", got, err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Errorf("Get unknown: %v", err)
	}
	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0] != a || items[1] != b {
		t.Errorf("List = %v", items)
	}
}

func TestAddItem_ConcurrentGeneratedNamesAreUnique(t *testing.T) {
	ctx := context.Background()
	svc, feed := newService()

	const n = 40
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, ""); err != nil {
				t.Errorf("AddItem: %v", err)
			}
		}()
	}
	wg.Wait()

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	names := make(map[string]bool, n)
	for _, it := range items {
		if names[it.Name()] {
			t.Fatalf("duplicate generated name %q", it.Name())
		}
		names[it.Name()] = true
	}
	if len(names) != n || len(feed.changes) != n {
		t.Fatalf("names=%d changes=%d, want %d", len(names), len(feed.changes), n)
	}
}

func TestPublish_NilItem(t *testing.T) {
	svc, feed := newService()

	err := svc.publish(nil, itemevents.CountChanged)
	if !errors.Is(err, itemdomain.ErrNilItem) {
		t.Fatalf("expected ErrNilItem, got %v", err)
	}
	if err := svc.increment(nil); !errors.Is(err, itemdomain.ErrNilItem) {
		t.Fatalf("increment: expected ErrNilItem, got %v", err)
	}
	if len(feed.changes) != 0 {
		t.Fatalf("nil item reached the feed: %+v", feed.changes)
	}
}
