package handlers

import (
	"net/http"

	"github.com/ghuser/itemfeed/pkg/httpx"
	"github.com/ghuser/itemfeed/services/item/application/view"
)

// ViewResponse is the rendered view plus the number of changes not yet
// delivered to it.
type ViewResponse struct {
	view.SnapshotView
	Pending int `json:"pending"`
}

// ViewSource exposes the rendered rows.
type ViewSource interface {
	View() view.SnapshotView
}

// PendingCounter reports undelivered changes.
type PendingCounter interface {
	Pending() int
}

// Reloader forces a full refresh.
type Reloader interface {
	Reload()
}

// ViewHandler serves GET /view and POST /view/reload.
type ViewHandler struct {
	source   ViewSource
	pending  PendingCounter
	reloader Reloader
}

func NewViewHandler(source ViewSource, pending PendingCounter, reloader Reloader) *ViewHandler {
	return &ViewHandler{source: source, pending: pending, reloader: reloader}
}

// Get returns the rows as last rendered.
func (h *ViewHandler) Get(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, ViewResponse{
		SnapshotView: h.source.View(),
		Pending:      h.pending.Pending(),
	})
}

// Reload re-renders every row from the live items and returns the result.
func (h *ViewHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.reloader.Reload()
	h.Get(w, r)
}
