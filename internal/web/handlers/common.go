package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/encoder"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/kozaktomas/attendance/internal/registry"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// decodeJSON parses the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain errors to HTTP status codes. Unknown errors
// fall through to 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, registry.ErrPersonNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrNoFaceDetected),
		errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, encoder.ErrInvalidImage),
		errors.Is(err, attendance.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, matcher.ErrModelNotReady):
		return http.StatusConflict
	case errors.Is(err, database.ErrStoreIntegrity):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError sends an error response with the status derived from
// the error's type.
func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, statusForError(err), err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
