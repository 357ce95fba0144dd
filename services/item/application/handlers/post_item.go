package handlers

import (
	"net/http"

	"github.com/ghuser/itemfeed/pkg/errhttp"
	"github.com/ghuser/itemfeed/pkg/httpx"
	pkgvalidator "github.com/ghuser/itemfeed/pkg/validator"
	appsvcs "github.com/ghuser/itemfeed/services/item/application/services"
)

// CreateItemRequest is the request body for POST /item. Name is optional;
// an empty one is generated.
type CreateItemRequest struct {
	Name string `json:"name" validate:"max=255,printable"`
}

// PostItemHandler handles POST /item requests.
type PostItemHandler struct {
	svc  *appsvcs.Services
	errs *errhttp.Writer
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services, errs *errhttp.Writer) *PostItemHandler {
	return &PostItemHandler{svc: svc, errs: errs}
}

// Execute adds an item and enqueues NewItem.
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateItemRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Item.AddItem(r.Context(), req.Name)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toResponse(item))
}
