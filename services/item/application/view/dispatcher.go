// Package view is the consumer side of the item feed: it turns delivered
// changes into full or single-row refreshes of a list view.
package view

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ghuser/itemfeed/pkg/logger"
	itemevents "github.com/ghuser/itemfeed/services/item/domain/events"
	"github.com/ghuser/itemfeed/services/item/domain/models"
)

// Row is what a list view shows for one item.
type Row struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

func rowOf(item *models.Item) Row {
	s := item.State()
	return Row{ID: s.ID, Name: s.Name, Count: s.Count}
}

// Renderer receives refreshes. Calls never overlap.
type Renderer interface {
	// ReloadAll replaces every row.
	ReloadAll(rows []Row)
	// ReloadRow replaces the row at index.
	ReloadRow(index int, row Row)
}

// Dispatcher owns the consumer's list of items and applies changes to it.
// Its lock keeps Renderer calls from overlapping when Reload races a
// delivery.
type Dispatcher struct {
	renderer Renderer
	log      logger.Logger

	mu    sync.Mutex
	items []*models.Item
}

// NewDispatcher returns a Dispatcher with an empty list.
func NewDispatcher(renderer Renderer, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{renderer: renderer, log: logger.Component(log, "view")}
}

// Handle applies one change.
func (d *Dispatcher) Handle(c itemevents.Change) {
	if c.Item == nil {
		d.log.Warn("change without item ignored", "kind", c.Kind)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch c.Kind {
	case itemevents.NewItem:
		d.items = append(d.items, c.Item)
		d.reloadAllLocked()
	case itemevents.CountChanged:
		idx := d.indexLocked(c.Item)
		if idx < 0 {
			d.log.Debug("count change for item not in view", "item_id", c.Item.ID)
			return
		}
		d.renderer.ReloadRow(idx, rowOf(d.items[idx]))
	case itemevents.NameChanged:
		// Names are picked up by the next refresh of the row.
	default:
		d.log.Warn("unknown change kind", "kind", c.Kind, "item_id", c.Item.ID)
	}
}

// Reload forces a full refresh of the current list.
func (d *Dispatcher) Reload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloadAllLocked()
}

// Len reports how many items the view holds.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *Dispatcher) indexLocked(item *models.Item) int {
	for i, it := range d.items {
		if it.Equal(item) {
			return i
		}
	}
	return -1
}

func (d *Dispatcher) reloadAllLocked() {
	rows := make([]Row, len(d.items))
	for i, it := range d.items {
		rows[i] = rowOf(it)
	}
	d.renderer.ReloadAll(rows)
}
