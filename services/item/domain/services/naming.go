// Package services contains stateless domain services for the item bounded context.
package services

import "fmt"

// DefaultNamePrefix prefixes generated item names.
const DefaultNamePrefix = "newItem"

// NameForNewItem returns name unchanged, or a generated "newItem <n>" when
// name is empty. existing is the number of items already in the store.
func NameForNewItem(name string, existing int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s %d", DefaultNamePrefix, existing)
}
