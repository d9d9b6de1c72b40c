// Package apperror defines the error taxonomy shared by the service layer,
// the HTTP handlers and the API client.
//
// Services return *AppError values wrapping one of the sentinels below.
// Callers never compare messages; they ask errors.Is(err, apperror.ErrNotFound).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound is returned both when an entity does not exist and when it exists
// but belongs to someone else. The message is the same in both cases.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateName is a validation error for a name that is already taken
// within the caller's own set (tags, custom AI providers, custom AI names).
func DuplicateName(resource, name string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("%s %q already exists", resource, name),
		Field:   "name",
	}
}

// LimitExceeded is a validation error for a per-user count limit.
func LimitExceeded(resource string, limit int) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("maximum %d %s allowed", limit, resource),
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for bad credentials or a missing session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// kinds maps the machine-readable names used in API error bodies to the
// sentinels. The handler writes them, the client reads them back.
var kinds = map[string]error{
	"not_found":        ErrNotFound,
	"validation_error": ErrValidation,
	"conflict":         ErrConflict,
	"forbidden":        ErrForbidden,
	"unauthorized":     ErrUnauthorized,
}

// Kind returns the API name of err's category, or "internal_error".
func Kind(err error) string {
	for name, sentinel := range kinds {
		if errors.Is(err, sentinel) {
			return name
		}
	}
	return "internal_error"
}

// FromKind rebuilds an AppError from an API error body. Unknown kinds yield
// an AppError with no sentinel, which callers treat as unexpected.
func FromKind(kind, message string) *AppError {
	return &AppError{
		Err:     kinds[kind],
		Message: message,
	}
}
