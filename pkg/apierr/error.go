package apierr

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a failed call against the graph service API.
type Error struct {
	// Message is the human-readable description, including any server detail.
	Message string
	// StatusCode holds the HTTP status of the failed response. Zero means the
	// call failed before a response status was available.
	StatusCode int
	// Err is the underlying cause for wrapped failures.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HasStatus reports whether the error was produced from an HTTP response.
func (e *Error) HasStatus() bool {
	return e != nil && e.StatusCode != 0
}

// New builds an error for a non-success response. detail is appended to the
// message when non-empty.
func New(message string, statusCode int, detail string) *Error {
	detail = strings.TrimSpace(detail)
	if detail != "" {
		message = message + ": " + detail
	}
	return &Error{Message: message, StatusCode: statusCode}
}

// Wrap converts err into an *Error prefixed with message. Errors that already
// are (or wrap) an *Error are returned unchanged so messages never nest.
func Wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return err
	}
	return &Error{
		Message: message + ": " + err.Error(),
		Err:     err,
	}
}

// StatusCode extracts the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.HasStatus() {
		return 0, false
	}
	return apiErr.StatusCode, true
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == 404
}
