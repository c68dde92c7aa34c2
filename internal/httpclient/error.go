package httpclient

import (
	goerrors "errors"
	"fmt"

	ierr "github.com/kewsys/registry/internal/errors"
)

// Error is a non 2xx response
type Error struct {
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("http client error: status %d", e.StatusCode)
}

// Is classifies every response error as an http client error
func (e *Error) Is(target error) bool {
	return target == ierr.ErrHTTPClient
}

// NewError creates a new HTTP client error
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Response:   response,
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
