package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/itemfeed/pkg/httpx"
	"github.com/ghuser/itemfeed/services/item/domain/models"
)

// ItemResponse is the live state of one item.
type ItemResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toResponse(item *models.Item) ItemResponse {
	s := item.State()
	return ItemResponse{ID: s.ID, Name: s.Name, Count: s.Count}
}

// itemID parses the {id} path parameter, writing 400 on failure.
func itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "id must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}
