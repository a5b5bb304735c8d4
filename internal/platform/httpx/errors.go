package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RespondError maps domain errors to RFC7807 problem responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrGatewayUnavailable):
		Problem(w, http.StatusServiceUnavailable, "remote store unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}
