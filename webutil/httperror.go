package webutil

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	msgBadRequest       = "Bad Request"
	msgNotFound         = "Resource not found"
	msgInternalServer   = "Internal Server Error"
	msgMethodNotAllowed = "Method not allowed"
	msgConflict         = "Conflict"
)

// HTTPError is an error with an HTTP status code and a message that is safe
// to show to API clients.
type HTTPError struct {
	cause   error // never shown to clients
	Code    int
	Message string
}

func (he HTTPError) Error() string {
	return he.Message
}

func (he HTTPError) Unwrap() error {
	return he.cause
}

func defaultMessageIfEmpty(initialMsg, defaultVal string) string {
	if initialMsg == "" {
		return defaultVal
	}
	return initialMsg
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		cause:   errors.New(message),
		Code:    code,
		Message: message,
	}
}

// NewHTTPErrorWrap keeps cause for logging while clients only see message.
func NewHTTPErrorWrap(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		cause:   cause,
		Code:    code,
		Message: message,
	}
}

func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest))
}

func ErrBadRequestWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusBadRequest, defaultMessageIfEmpty(message, msgBadRequest), cause)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, defaultMessageIfEmpty(message, msgNotFound))
}

func ErrMethodNotAllowed(message string) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, defaultMessageIfEmpty(message, msgMethodNotAllowed))
}

func ErrConflict(message string) *HTTPError {
	return NewHTTPError(http.StatusConflict, defaultMessageIfEmpty(message, msgConflict))
}

func ErrInternalServerWrap(message string, cause error) *HTTPError {
	return NewHTTPErrorWrap(http.StatusInternalServerError, msgInternalServer, fmt.Errorf("%s: %w", message, cause))
}
