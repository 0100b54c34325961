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
	ErrSync         = errors.New("sync failed")
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

// Conflict reports a duplicate of a unique key. key is whatever identifies
// the clash for the caller: an id, an email, a date.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, key),
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

// Unauthorized covers missing or bad credentials and a missing Fitbit
// connection. Handlers map it to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// SyncError is a failed call to the fitness provider. Status is the HTTP
// status the provider answered with, or 0 when no response was received.
type SyncError struct {
	Endpoint string
	Status   int
	Err      error
}

func SyncFailed(endpoint string, status int, cause error) *SyncError {
	return &SyncError{Endpoint: endpoint, Status: status, Err: cause}
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("fitbit %s request failed", e.Endpoint)
	if e.Status != 0 {
		msg += fmt.Sprintf(" with status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrSync and the cause, so errors.Is matches either.
func (e *SyncError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSync}
	}
	return []error{ErrSync, e.Err}
}
