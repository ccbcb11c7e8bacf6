// Package apperror defines the typed failures returned by manager operations.
// Callers match them with errors.Is against the sentinels and show Message to users.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrIO         = errors.New("i/o failure")
)

type AppError struct {
	Err     error  // sentinel, or the wrapped cause for ErrIO
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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
	}
}

// Conflict reports that the requested name or directory is already taken.
func Conflict(resource, name string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %q already exists", resource, name),
	}
}

// IO wraps a disk failure. errors.Is matches both ErrIO and the original cause.
func IO(op string, err error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrIO, err),
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
