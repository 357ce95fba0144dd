// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/ghuser/itemfeed/pkg/events"
	"github.com/ghuser/itemfeed/pkg/httpx"
	"github.com/ghuser/itemfeed/pkg/logger"
	itemdomain "github.com/ghuser/itemfeed/services/item/domain"
)

// Writer writes error responses. 5xx errors are logged, and in production
// their message is replaced by the status text.
type Writer struct {
	log          logger.Logger
	isProduction bool
}

// New returns a Writer. log may be nil.
func New(log logger.Logger, isProduction bool) *Writer {
	if log == nil {
		log = logger.Nop()
	}
	return &Writer{log: log, isProduction: isProduction}
}

// Write maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
func (wr *Writer) Write(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		wr.log.ErrorContext(r.Context(), "request failed", "status", status, "error", err)
	}
	httpx.JSONError(w, status, httpx.SafeError(err, status, wr.isProduction))
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, itemdomain.ErrItemNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, itemdomain.ErrInvalidItemName):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, events.ErrClosed):
		return http.StatusServiceUnavailable // 503
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
