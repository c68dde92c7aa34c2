package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound          = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists     = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict   = new(ErrCodeVersionConflict, "version conflict")
	ErrInvalidTransition = new(ErrCodeInvalidTransition, "invalid status transition")
	ErrValidation        = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation  = new(ErrCodeInvalidOperation, "invalid operation")
	ErrUnauthorized      = new(ErrCodeUnauthorized, "unauthorized")
	ErrPermissionDenied  = new(ErrCodePermissionDenied, "permission denied")
	ErrRateLimited       = new(ErrCodeRateLimited, "too many requests")
	ErrHTTPClient        = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase          = new(ErrCodeDatabase, "database error")
	ErrSystem            = new(ErrCodeSystemError, "system error")

	// ordered so that the most specific classification wins
	statusCodes = []struct {
		err    *InternalError
		status int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrVersionConflict, http.StatusConflict},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrInvalidOperation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrHTTPClient, http.StatusInternalServerError},
		{ErrDatabase, http.StatusInternalServerError},
		{ErrSystem, http.StatusInternalServerError},
	}
)

const (
	ErrCodeHTTPClient        = "http_client_error"
	ErrCodeSystemError       = "system_error"
	ErrCodeNotFound          = "not_found"
	ErrCodeAlreadyExists     = "already_exists"
	ErrCodeVersionConflict   = "version_conflict"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeValidation        = "validation_error"
	ErrCodeInvalidOperation  = "invalid_operation"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodePermissionDenied  = "permission_denied"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeDatabase          = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInvalidTransition checks if a workflow transition was attempted from the wrong status
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsUnauthorized checks if an error is an authentication failure
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsConflict reports any of the 409 classifications
func IsConflict(err error) bool {
	return IsAlreadyExists(err) || IsVersionConflict(err) || IsInvalidTransition(err)
}

func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr returns the machine-readable classification of err
func CodeFromErr(err error) string {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.err.Code
		}
	}
	return ErrCodeSystemError
}
