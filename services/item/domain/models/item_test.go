package models

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
)

func TestNewItem(t *testing.T) {
	t.Run("returns item with non-zero ID", func(t *testing.T) {
		item := NewItem("Test Item")
		if item.ID == (uuid.UUID{}) {
			t.Fatal("expected non-zero UUID for ID")
		}
	})

	t.Run("sets name and zero count", func(t *testing.T) {
		item := NewItem("Test Item")
		if item.Name() != "Test Item" {
			t.Fatalf("expected name %q, got %q", "Test Item", item.Name())
		}
		if item.Count() != 0 {
			t.Fatalf("expected count 0, got %d", item.Count())
		}
	})

	t.Run("empty name is accepted", func(t *testing.T) {
		if item := NewItem(""); item.Name() != "" {
			t.Fatalf("expected empty name, got %q", item.Name())
		}
	})

	t.Run("generates unique IDs on each call", func(t *testing.T) {
		if NewItem("a").ID == NewItem("a").ID {
			t.Fatal("expected unique IDs, got identical")
		}
	})
}

func TestItem_IdentityStableAcrossMutations(t *testing.T) {
	item := NewItem("before")
	id := item.ID
	snapshot := &Item{ID: id}

	for i := 0; i < 10; i++ {
		item.AddCount(1)
		item.Rename("after")
	}

	if item.ID != id {
		t.Fatalf("ID changed: %v -> %v", id, item.ID)
	}
	if !item.Equal(snapshot) {
		t.Fatal("expected equality by ID after mutations")
	}
	if item.Count() != 10 || item.Name() != "after" {
		t.Fatalf("unexpected state: %+v", item.State())
	}
}

func TestItem_Equal(t *testing.T) {
	a := NewItem("same")
	b := NewItem("same")

	if a.Equal(b) {
		t.Error("items with different IDs must not be equal")
	}
	if !a.Equal(a) {
		t.Error("item must equal itself")
	}

	var nilItem *Item
	if a.Equal(nilItem) {
		t.Error("item must not equal nil")
	}
	if !nilItem.Equal(nil) {
		t.Error("nil must equal nil")
	}
}

func TestItem_AddCount(t *testing.T) {
	item := NewItem("counter")
	if got, err := item.AddCount(3); err != nil || got != 3 {
		t.Fatalf("expected 3, got %d (err %v)", got, err)
	}
	if got, err := item.AddCount(-1); err != nil || got != 2 {
		t.Fatalf("expected 2, got %d (err %v)", got, err)
	}
}

func TestItem_NilReference(t *testing.T) {
	var item *Item

	if _, err := item.AddCount(1); !errors.Is(err, itemdomain.ErrNilItem) {
		t.Errorf("AddCount: expected ErrNilItem, got %v", err)
	}
	if err := item.Rename("x"); !errors.Is(err, itemdomain.ErrNilItem) {
		t.Errorf("Rename: expected ErrNilItem, got %v", err)
	}
}

func TestItem_ConcurrentMutation(t *testing.T) {
	item := NewItem("shared")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item.AddCount(1)
			_ = item.State()
		}()
	}
	wg.Wait()

	if item.Count() != 50 {
		t.Fatalf("expected 50, got %d", item.Count())
	}
}
