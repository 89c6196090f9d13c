package webutil

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	msgBadRequest     = "Bad Request"
	msgNotFound       = "Resource not found"
	msgInternalServer = "Internal Server Error"
	msgFileRead       = "Error reading file"
)

// HTTPError is what bridge handlers return when a request fails. Code and
// Message go to the client; the cause only reaches the server log.
type HTTPError struct {
	cause   error
	Code    int
	Message string // sent as {"error": Message}
}

func (he HTTPError) Error() string {
	return he.Message
}

// Unwrap exposes the cause, e.g. storage.ErrFileRead, to errors.Is.
func (he HTTPError) Unwrap() error {
	return he.cause
}

func defaultMessageIfEmpty(initialMsg, defaultVal string) string {
	if initialMsg == "" {
		return defaultVal
	}
	return initialMsg
}

// NewHTTPError builds an error with no separate cause; the log shows only message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		cause:   errors.New(message),
		Code:    code,
		Message: message,
	}
}

// NewHTTPErrorWrap keeps cause for the log and answers the client with message.
func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		cause:   cause,
		Code:    code,
		Message: message,
	}
}

// ErrBadRequest is used for malformed relay payloads.
func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest), cause)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, defaultMessageIfEmpty(message, msgNotFound))
}

// ErrInternalServerWrap hides message and cause from the client behind a generic 500.
func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, msgInternalServer, fmt.Errorf("%s: %w", message, cause))
}

// ErrFileReadWrap reports a failed disk read without leaking the path to the client.
func ErrFileReadWrap(cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, msgFileRead, cause)
}
