package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"outpatient_capacity/pkg/models"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{ErrorKind: kind, Message: message})
}

// mapError turns a calculator error into a status code and error kind.
func mapError(err error) (int, string) {
	kind := models.ErrorKind(err)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, models.ErrSchema), errors.Is(err, models.ErrInvalidRange):
		return http.StatusBadRequest, kind
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrDegenerateRate):
		return http.StatusUnprocessableEntity, kind
	case errors.Is(err, models.ErrPrerequisiteMissing):
		return http.StatusConflict, kind
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}
