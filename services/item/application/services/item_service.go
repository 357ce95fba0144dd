package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
	itemevents "github.com/ghuser/itemfeed/services/item/domain/events"
	"github.com/ghuser/itemfeed/services/item/domain/models"
	"github.com/ghuser/itemfeed/services/item/domain/repositories"
	domainsvcs "github.com/ghuser/itemfeed/services/item/domain/services"
)

// ChangeFeed accepts item changes for delivery to the view.
type ChangeFeed interface {
	Enqueue(c itemevents.Change) error
}

// ItemService is the producer side of the feed: every mutation updates the
// item in the store first and then enqueues the matching change.
type ItemService struct {
	repo repositories.ItemRepository
	feed ChangeFeed
}

// NewItemService returns an ItemService wired with the given repository and feed.
func NewItemService(repo repositories.ItemRepository, feed ChangeFeed) *ItemService {
	return &ItemService{repo: repo, feed: feed}
}

// AddItem creates an item and enqueues NewItem. An empty name is replaced by
// a generated one.
func (s *ItemService) AddItem(ctx context.Context, name string) (*models.Item, error) {
	name = strings.TrimSpace(name)
	item, err := s.repo.CreateNamed(ctx, func(existing int) string {
		return domainsvcs.NameForNewItem(name, existing)
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	if err := s.publish(item, itemevents.NewItem); err != nil {
		return nil, err
	}
	return item, nil
}

// IncrementCount adds one to the item's count and enqueues CountChanged.
func (s *ItemService) IncrementCount(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, s.increment(item)
}

// IncrementLast increments the most recently added item.
func (s *ItemService) IncrementLast(ctx context.Context) (*models.Item, error) {
	item, err := s.repo.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("last item: %w", err)
	}
	return item, s.increment(item)
}

// IncrementAllCounts increments every item in creation order, enqueuing one
// CountChanged per item. It returns how many items were updated.
func (s *ItemService) IncrementAllCounts(ctx context.Context) (int, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	for i, item := range items {
		if err := s.increment(item); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

// Rename changes the item's name and enqueues NameChanged.
func (s *ItemService) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", itemdomain.ErrInvalidItemName)
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if err := item.Rename(name); err != nil {
		return nil, fmt.Errorf("rename item: %w", err)
	}
	if err := s.publish(item, itemevents.NameChanged); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns the live item.
func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns every item in creation order.
func (s *ItemService) List(ctx context.Context) ([]*models.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *ItemService) increment(item *models.Item) error {
	if _, err := item.AddCount(1); err != nil {
		return fmt.Errorf("increment item: %w", err)
	}
	return s.publish(item, itemevents.CountChanged)
}

func (s *ItemService) publish(item *models.Item, kind itemevents.ChangeKind) error {
	if item == nil {
		return fmt.Errorf("enqueue %s: %w", kind, itemdomain.ErrNilItem)
	}
	if err := s.feed.Enqueue(itemevents.Change{Item: item, Kind: kind}); err != nil {
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return nil
}
