package main

import (
	"context"
	"time"

	"github.com/ghuser/itemfeed/pkg/logger"
	appsvcs "github.com/ghuser/itemfeed/services/item/application/services"
	"github.com/ghuser/itemfeed/services/item/application/view"
)

// simulator presses the item buttons on a ticker: it adds items until
// there are maxItems of them, then alternates "+1 last" and "+1 all".
type simulator struct {
	items    *appsvcs.ItemService
	log      logger.Logger
	maxItems int
	interval time.Duration

	added int
	step  int
}

func newSimulator(items *appsvcs.ItemService, log logger.Logger, maxItems int, interval time.Duration) *simulator {
	return &simulator{
		items:    items,
		log:      logger.Component(log, "simulator"),
		maxItems: maxItems,
		interval: interval,
	}
}

// run presses one button per tick until ctx is done.
func (s *simulator) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("simulator stopped", "presses", s.added+s.step)
			return
		case <-ticker.C:
			if err := s.press(ctx); err != nil {
				s.log.Error("button press failed", "error", err)
			}
		}
	}
}

// press performs the next action.
func (s *simulator) press(ctx context.Context) error {
	if s.added < s.maxItems {
		item, err := s.items.AddItem(ctx, "")
		if err != nil {
			return err
		}
		s.added++
		s.log.Debug("pressed add", "item_id", item.ID, "name", item.Name())
		return nil
	}

	s.step++
	if s.step%2 == 1 {
		item, err := s.items.IncrementLast(ctx)
		if err != nil {
			return err
		}
		s.log.Debug("pressed +1 last", "item_id", item.ID, "count", item.Count())
		return nil
	}
	n, err := s.items.IncrementAllCounts(ctx)
	if err != nil {
		return err
	}
	s.log.Debug("pressed +1 all", "updated", n)
	return nil
}

// logRenderer logs every refresh the view receives.
type logRenderer struct {
	log logger.Logger
}

var _ view.Renderer = logRenderer{}

func (r logRenderer) ReloadAll(rows []view.Row) {
	r.log.Info("reload all", "rows", len(rows))
}

func (r logRenderer) ReloadRow(index int, row view.Row) {
	r.log.Info("reload row", "index", index, "item_id", row.ID, "name", row.Name, "count", row.Count)
}
