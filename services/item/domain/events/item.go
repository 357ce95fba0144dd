package events

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/itemfeed/services/item/domain/models"
)

// TopicItemChanged is the Watermill topic used by the direct (undebounced) feed.
const TopicItemChanged = "item.changed"

// ChangeKind describes what happened to an item. It carries no payload.
type ChangeKind int

const (
	NewItem ChangeKind = iota + 1
	NameChanged
	CountChanged
)

var kindNames = map[ChangeKind]string{
	NewItem:      "new_item",
	NameChanged:  "name_changed",
	CountChanged: "count_changed",
}

func (k ChangeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// ParseChangeKind is the inverse of String.
func ParseChangeKind(s string) (ChangeKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown change kind %q", s)
}

// MarshalText encodes the kind by name so wire records stay readable.
func (k ChangeKind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown change kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *ChangeKind) UnmarshalText(b []byte) error {
	parsed, err := ParseChangeKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Change is one queued mutation. Item is a reference, so whoever handles the
// change reads the item's state at handling time, not at enqueue time.
type Change struct {
	Item *models.Item
	Kind ChangeKind
}

// ChangeRecord is the wire form of a Change used by the direct feed, which
// has to cross a message boundary. The receiver resolves ItemID back to the
// live item.
type ChangeRecord struct {
	ItemID uuid.UUID  `json:"item_id"`
	Kind   ChangeKind `json:"kind"`
}

// Record returns the wire form of c.
func (c Change) Record() ChangeRecord {
	return ChangeRecord{ItemID: c.Item.ID, Kind: c.Kind}
}
