package domain

import "errors"

// Sentinel errors for the item domain. Use errors.Is() to check these.
var (
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrNilItem indicates a mutation was attempted without an item reference.
	ErrNilItem = errors.New("item reference is nil")

	// ErrInvalidItemName indicates a name rejected at the API boundary.
	ErrInvalidItemName = errors.New("invalid item name")
)
