// Package apperror defines the error kinds shared by every layer.
//
// Repositories and services return *AppError values wrapping one of the
// sentinels below. Handlers never inspect messages; they switch on the
// sentinel with errors.Is and pick an HTTP response.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuthFailure  = errors.New("authentication failure")
)

// FieldError is a single problem with a submitted form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel kind
	Message string       // human-readable message
	Field   string       // optional: field causing the error
	Fields  []FieldError // optional: every failing field for ErrValidation
	Cause   error        // optional: underlying error, kept for logs
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// Invalid bundles several field errors into one validation error.
// It returns nil when fields is empty so callers can write
// `if err := apperror.Invalid(errs); err != nil`.
func Invalid(fields []FieldError) *AppError {
	if len(fields) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Message)
	}
	return &AppError{
		Err:     ErrValidation,
		Message: strings.Join(msgs, "; "),
		Field:   fields[0].Field,
		Fields:  fields,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthorized is returned when an operation needs an authenticated
// identity, or when submitted credentials do not match.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// AuthFailure wraps a failed exchange with an external identity provider.
func AuthFailure(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrAuthFailure,
		Message: message,
		Cause:   cause,
	}
}

// FieldsOf returns the field errors carried by err, if any.
func FieldsOf(err error) []FieldError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
