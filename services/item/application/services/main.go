package services

import (
	"github.com/ghuser/itemfeed/services/item/domain/repositories"
)

// Services is the application-layer service container for this bounded context.
type Services struct {
	Item *ItemService
}

// New wires all item application services.
func New(repo repositories.ItemRepository, feed ChangeFeed) *Services {
	return &Services{
		Item: NewItemService(repo, feed),
	}
}
