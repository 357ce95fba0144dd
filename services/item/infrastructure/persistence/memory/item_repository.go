// Package memory holds the in-process Item store.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
	"github.com/ghuser/itemfeed/services/item/domain/models"
)

// ItemRepository implements repositories.ItemRepository in memory.
// Items are kept in creation order; the index maps IDs to positions.
type ItemRepository struct {
	mu    sync.RWMutex
	items []*models.Item
	index map[uuid.UUID]int
}

// NewItemRepository returns an empty ItemRepository.
func NewItemRepository() *ItemRepository {
	return &ItemRepository{index: make(map[uuid.UUID]int)}
}

// Create stores a new Item. Names are not validated here.
func (r *ItemRepository) Create(ctx context.Context, name string) (*models.Item, error) {
	return r.CreateNamed(ctx, func(int) string { return name })
}

// CreateNamed stores a new Item named by nameFor, called under the write lock.
func (r *ItemRepository) CreateNamed(_ context.Context, nameFor func(existing int) string) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := models.NewItem(nameFor(len(r.items)))
	r.index[item.ID] = len(r.items)
	r.items = append(r.items, item)
	return item, nil
}

// GetByID returns the stored reference. Returns ErrItemNotFound if absent.
func (r *ItemRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[id]
	if !ok {
		return nil, itemdomain.ErrItemNotFound
	}
	return r.items[pos], nil
}

// List returns a new slice holding every stored reference in creation order.
func (r *ItemRepository) List(_ context.Context) ([]*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Item, len(r.items))
	copy(out, r.items)
	return out, nil
}

// Last returns the newest item. Returns ErrItemNotFound when the store is empty.
func (r *ItemRepository) Last(_ context.Context) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.items) == 0 {
		return nil, itemdomain.ErrItemNotFound
	}
	return r.items[len(r.items)-1], nil
}

// Count reports the number of stored items.
func (r *ItemRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}
