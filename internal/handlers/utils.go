package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-vault/internal/apperr"
	"media-vault/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeDomainError maps a core error to the matching HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperr.ErrInvalidArgument):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrDuplicateRace):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		logging.Error("internal error: %v", err)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
