package handler

// Response helpers shared by every handler in this package. All success
// responses go out through writeJSON; all failures through writeError, so
// the frontend sees one error shape regardless of status code:
//
//	{"error": "not_found", "message": "participant not found with id X"}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"shopwithus/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// MessageResponse is the standard acknowledgement body for write endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body; once Encode writes,
// they are already on the wire.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status code and sends it.
//
// The services return apperror values; this is the single place they get
// translated to HTTP. errors.Is walks the chain via Unwrap, so wrapping
// with fmt.Errorf("...: %w", err) anywhere in the services is fine.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — never leak internals (SQL, file paths) to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Internal server error",
	})
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
// Untyped bodies were a bug farm in the first version of this app: a
// misspelled field silently became a no-op write. Unknown-shape input is now
// a validation error before it reaches any business logic.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	// A second value after the first JSON document is also malformed input.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}
