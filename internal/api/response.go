package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/lifecycle"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Details []string          `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// jsonValidation writes a 400 response listing every field message, and the
// same messages keyed by field name.
func jsonValidation(w http.ResponseWriter, fields map[string]string) {
	verr := &lifecycle.ValidationError{Fields: fields}
	jsonResponse(w, http.StatusBadRequest, errorResponse{
		Error:   "validation failed",
		Details: verr.Details(),
		Fields:  fields,
	})
}

// writeServiceError maps a lifecycle error to its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *lifecycle.ValidationError
	switch {
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		jsonError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, lifecycle.ErrForbidden):
		jsonError(w, http.StatusForbidden, "not authorized to modify this item")
	case errors.Is(err, lifecycle.ErrNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.As(err, &verr):
		jsonValidation(w, verr.Fields)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
