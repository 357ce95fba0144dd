package view

import "sync"

// SnapshotView is what Snapshot reports: the rows as last rendered plus
// refresh counters.
type SnapshotView struct {
	Rows          []Row `json:"rows"`
	FullRefreshes int   `json:"full_refreshes"`
	RowRefreshes  int   `json:"row_refreshes"`
}

// Snapshot is a Renderer that keeps the last rendered rows in memory. A row
// only changes when it is refreshed, so it can lag the live item.
type Snapshot struct {
	mu            sync.RWMutex
	rows          []Row
	fullRefreshes int
	rowRefreshes  int
}

var _ Renderer = (*Snapshot)(nil)

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

func (s *Snapshot) ReloadAll(rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows[:0:0], rows...)
	s.fullRefreshes++
}

func (s *Snapshot) ReloadRow(index int, row Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rows) {
		return
	}
	s.rows[index] = row
	s.rowRefreshes++
}

// View returns a copy of the current state.
func (s *Snapshot) View() SnapshotView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SnapshotView{
		Rows:          append([]Row{}, s.rows...),
		FullRefreshes: s.fullRefreshes,
		RowRefreshes:  s.rowRefreshes,
	}
}
