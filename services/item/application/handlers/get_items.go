package handlers

import (
	"net/http"

	"github.com/ghuser/itemfeed/pkg/errhttp"
	"github.com/ghuser/itemfeed/pkg/httpx"
	appsvcs "github.com/ghuser/itemfeed/services/item/application/services"
)

// ListItemsResponse lists items in creation order.
type ListItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

// ListItemsHandler handles GET /item. It reads the store, so counts may be
// ahead of the rendered view.
type ListItemsHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewListItemsHandler(svc *appsvcs.Services, errs *errhttp.Writer) *ListItemsHandler {
	return &ListItemsHandler{svc: svc, errs: errs}
}

func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Item.List(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	resp := ListItemsResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, toResponse(it))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// GetItemHandler handles GET /item/{id}.
type GetItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewGetItemHandler(svc *appsvcs.Services, errs *errhttp.Writer) *GetItemHandler {
	return &GetItemHandler{svc: svc, errs: errs}
}

func (h *GetItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.Item.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(item))
}
