// Package httpapi exposes the service layer over a chi-routed JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the sentinel error taxonomy onto HTTP statuses. Unmatched
// errors become opaque 500s so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var valErrs validator.ValidationErrors

	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "not found"})
	case errors.Is(err, common.ErrorAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "already exists"})
	case errors.Is(err, common.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "version conflict"})
	case errors.Is(err, common.ErrMissingRequiredField),
		errors.Is(err, common.ErrInvalidParameter),
		errors.Is(err, common.ErrMissingParameter),
		errors.As(err, &valErrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request"})
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	case errors.Is(err, common.ErrInvalidOrInactiveUser):
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "forbidden"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrInvalidParameter
	}
	return nil
}
