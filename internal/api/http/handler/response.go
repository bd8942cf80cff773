package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a mutation without a resource body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// handleError maps domain errors onto HTTP statuses. A StoreError is always a
// 500, whatever it wraps.
func handleError(w http.ResponseWriter, err error, log *logger.Logger) {
	var validation *model.ValidationError
	var storeErr *model.StoreError

	switch {
	case errors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &storeErr):
		log.Error("Handler: store failure", "op", storeErr.Op, "error", storeErr.Err.Error())
		WriteError(w, http.StatusInternalServerError, storeErr.Err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, model.ErrInvalidCredentials.Error())
	case errors.Is(err, model.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, model.ErrEmailTaken):
		WriteError(w, http.StatusConflict, model.ErrEmailTaken.Error())
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrExportsDisabled):
		WriteError(w, http.StatusServiceUnavailable, service.ErrExportsDisabled.Error())
	default:
		log.Error("Handler: unexpected failure", "error", err.Error())
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return model.NewValidationError("body", "invalid request body")
	}
	return nil
}
