package handlers

import (
	"net/http"

	"github.com/ghuser/itemfeed/pkg/errhttp"
	"github.com/ghuser/itemfeed/pkg/httpx"
	pkgvalidator "github.com/ghuser/itemfeed/pkg/validator"
	appsvcs "github.com/ghuser/itemfeed/services/item/application/services"
)

// RenameItemRequest is the request body for PUT /item/{id}/name.
type RenameItemRequest struct {
	Name string `json:"name" validate:"required,max=255,printable"`
}

// RenameItemHandler handles PUT /item/{id}/name. The view does not refresh
// on renames; the new name shows with the row's next refresh.
type RenameItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

func NewRenameItemHandler(svc *appsvcs.Services, errs *errhttp.Writer) *RenameItemHandler {
	return &RenameItemHandler{svc: svc, errs: errs}
}

func (h *RenameItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	req, ok := pkgvalidator.ValidateRequest[RenameItemRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Item.Rename(r.Context(), id, req.Name)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(item))
}
