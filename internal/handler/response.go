// Package handler contains the HTTP handlers of the API.
//
// Handlers are glue between HTTP and the service layer: parse the request
// (path values, query, JSON body), call one service method with the
// authenticated user id, write the result. They hold no business logic.
package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError, so the API has one
// success shape (the entity itself) and one error shape:
//
//	{"error": "not_found", "message": "snippet not found with id abc123"}
//
// The "error" value is apperror.Kind(err); the Go client turns it back into
// the same sentinel with apperror.FromKind.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/chat-memo/internal/apperror"
	"github.com/sakif/chat-memo/internal/auth"
)

// maxBodyBytes caps request bodies. Message content is the largest field.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeNoContent answers procedures that return nothing.
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

var statusByKind = map[string]int{
	"validation_error": http.StatusBadRequest,
	"unauthorized":     http.StatusUnauthorized,
	"forbidden":        http.StatusForbidden,
	"not_found":        http.StatusNotFound,
	"conflict":         http.StatusConflict,
}

// writeError maps a domain error to its HTTP status and sends it.
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("...: %w", appErr) still maps to the right status.
// Anything without a known sentinel is a 500 and its text never leaves the
// server: it may contain SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	kind := apperror.Kind(err)
	status, ok := statusByKind[kind]
	var appErr *apperror.AppError
	if !ok || !errors.As(err, &appErr) {
		slog.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}

// decodeJSON reads the request body into dst. On failure it has already
// written a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			msg = fmt.Sprintf("request body must be %d bytes or fewer", maxErr.Limit)
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: msg})
		return false
	}
	return true
}

// currentUser returns the id set by auth.RequireAuth. Every route using it
// is behind that middleware, so a miss means a routing bug; answer 401
// rather than run a query for user "".
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return userID, ok
}
