// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// Uniform details for outcomes whose cause must not leak to the client.
const (
	DetailUnauthorized       = "could not validate credentials"
	DetailForbidden          = "not enough permissions"
	DetailInvalidCredentials = "invalid email or password"
)

type detailer interface {
	Details() []string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		Problem(w, http.StatusUnauthorized, "Unauthorized", DetailUnauthorized)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusBadRequest, "Invalid Credentials", DetailInvalidCredentials)
	case errors.Is(err, shared.ErrInactiveUser):
		Problem(w, http.StatusForbidden, "Forbidden", "user is inactive")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", DetailForbidden)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrValidation):
		var d detailer
		if errors.As(err, &d) {
			JSON(w, http.StatusBadRequest, ProblemDetail{
				Title:  "Validation Failed",
				Status: http.StatusBadRequest,
				Detail: err.Error(),
				Errors: d.Details(),
			})
			return
		}
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
