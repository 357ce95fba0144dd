package handlers

import (
	"net/http"

	"github.com/ghuser/itemfeed/pkg/errhttp"
	"github.com/ghuser/itemfeed/pkg/httpx"
	appsvcs "github.com/ghuser/itemfeed/services/item/application/services"
)

// IncrementAllResponse reports how many items were incremented.
type IncrementAllResponse struct {
	Updated int `json:"updated"`
}

// IncrementHandler serves the three increment endpoints.
type IncrementHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewIncrementHandler(svc *appsvcs.Services, errs *errhttp.Writer) *IncrementHandler {
	return &IncrementHandler{svc: svc, errs: errs}
}

// One handles POST /item/{id}/increment.
func (h *IncrementHandler) One(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Item.IncrementCount(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(item))
}

// Last handles POST /item/last/increment.
func (h *IncrementHandler) Last(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Item.IncrementLast(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(item))
}

// All handles POST /item/increment-all.
func (h *IncrementHandler) All(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Item.IncrementAllCounts(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, IncrementAllResponse{Updated: n})
}
