package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/ghuser/itemfeed/services/item/domain/models"
)

// ItemRepository is the store of live Item references.
// The domain layer owns this interface; infrastructure implements it.
// Implementations hand out the stored pointer, never a copy, so mutations
// through one reference are visible through every other.
type ItemRepository interface {
	// Create builds a new Item with the given name and stores it.
	Create(ctx context.Context, name string) (*models.Item, error)

	// CreateNamed is Create with the name chosen by nameFor, which receives
	// the number of items already stored. The count and the insert are
	// atomic, so concurrent callers never see the same count.
	CreateNamed(ctx context.Context, nameFor func(existing int) string) (*models.Item, error)

	// GetByID returns the item or ErrItemNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)

	// List returns every item in creation order.
	List(ctx context.Context) ([]*models.Item, error)

	// Last returns the most recently created item or ErrItemNotFound.
	Last(ctx context.Context) (*models.Item, error)

	// Count reports how many items exist.
	Count(ctx context.Context) (int, error)
}
