package apperror

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrMissingProfile means a user exists but its Profile row does not.
	// Handlers surface it as a flash message, never as a hard failure.
	ErrMissingProfile = errors.New("missing profile")
)

type AppError struct {
	Err     error               // actual error
	Message string              // Human-readable error message
	Field   string              // Optional: field causing the error
	Fields  map[string][]string // Optional: every invalid field with its messages
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

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
		Fields:  map[string][]string{field: {message}},
	}
}

// Invalid bundles several field errors into one validation error.
// Message and Field describe the first field in sorted order so callers that
// only look at a single message still get a stable one.
func Invalid(fields map[string][]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k, msgs := range fields {
		if len(msgs) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	e := &AppError{Err: ErrValidation, Fields: fields, Message: "invalid input"}
	if len(keys) > 0 {
		e.Field = keys[0]
		e.Message = fields[keys[0]][0]
	}
	return e
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to a flash message and a redirect.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func MissingProfile(userID string) *AppError {
	return &AppError{
		Err:     ErrMissingProfile,
		Message: fmt.Sprintf("profile does not exist for user %s", userID),
	}
}

// FieldErrors extracts per-field messages from err, or nil if err is not a
// validation error.
func FieldErrors(err error) map[string][]string {
	var appErr *AppError
	if !errors.As(err, &appErr) || !errors.Is(appErr, ErrValidation) {
		return nil
	}
	if appErr.Fields != nil {
		return appErr.Fields
	}
	return map[string][]string{appErr.Field: {appErr.Message}}
}
