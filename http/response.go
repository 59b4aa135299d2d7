package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sitedock/sitedock"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError maps the error taxonomy to HTTP status codes. Validation and
// conflict errors surface with their message; everything else is logged with
// full context and returned as an opaque server fault.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sitedock.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, sitedock.ErrInvalidName):
		WriteError(w, http.StatusBadRequest, "invalid_name", err.Error())
	case errors.Is(err, sitedock.ErrMissingField):
		WriteError(w, http.StatusBadRequest, "missing_field", err.Error())
	case errors.Is(err, sitedock.ErrUnsupportedFormat):
		WriteError(w, http.StatusBadRequest, "unsupported_format", err.Error())
	case errors.Is(err, sitedock.ErrUnsafePath):
		WriteError(w, http.StatusBadRequest, "unsafe_path", err.Error())
	case errors.Is(err, sitedock.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, sitedock.ErrNameConflict):
		WriteError(w, http.StatusConflict, "name_conflict", err.Error())
	case errors.Is(err, sitedock.ErrAlreadyExists):
		WriteError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, sitedock.ErrAccountNotEmpty):
		WriteError(w, http.StatusConflict, "account_not_empty", err.Error())
	case errors.Is(err, sitedock.ErrUnauthorized):
		WriteError(w, http.StatusForbidden, "unauthorized", "Forbidden")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
