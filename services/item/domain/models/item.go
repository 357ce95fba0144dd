package models

import (
	"sync"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
)

// Item is a named counter. Identity is ID alone and never changes; Name and
// Count are mutable for the item's whole lifetime.
//
// Items are shared by reference between producers and the update consumer,
// so the mutable fields sit behind the item's own lock.
type Item struct {
	ID uuid.UUID

	mu    sync.RWMutex
	name  string
	count int
}

// NewItem returns an Item with a fresh ID and a zero count.
func NewItem(name string) *Item {
	return &Item{
		ID:   uuid.New(),
		name: name,
	}
}

// Name returns the current name.
func (i *Item) Name() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.name
}

// Count returns the current count.
func (i *Item) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.count
}

// Rename replaces the name. Returns ErrNilItem on a nil reference.
func (i *Item) Rename(name string) error {
	if i == nil {
		return itemdomain.ErrNilItem
	}
	i.mu.Lock()
	i.name = name
	i.mu.Unlock()
	return nil
}

// AddCount adds delta to the count and returns the new value. Returns
// ErrNilItem on a nil reference.
func (i *Item) AddCount(delta int) (int, error) {
	if i == nil {
		return 0, itemdomain.ErrNilItem
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.count += delta
	return i.count, nil
}

// Equal reports whether both items share the same identity.
func (i *Item) Equal(other *Item) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.ID == other.ID
}

// ItemState is a point-in-time copy of an Item's fields.
type ItemState struct {
	ID    uuid.UUID
	Name  string
	Count int
}

// State copies name and count under a single lock acquisition.
func (i *Item) State() ItemState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return ItemState{ID: i.ID, Name: i.name, Count: i.count}
}
