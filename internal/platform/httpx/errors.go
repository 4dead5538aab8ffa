// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-retail/meridian/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		ve shared.ValidationError
		ce shared.ConflictError
		se shared.StockError
	)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &ce):
		Problem(w, http.StatusBadRequest, "Duplicate Identifier", ce.Error())
	case errors.As(err, &se):
		Problem(w, http.StatusBadRequest, "Stock Rule Violation", se.Error())
	case errors.As(err, &ve):
		Problem(w, http.StatusBadRequest, "Validation Failed", ve.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
