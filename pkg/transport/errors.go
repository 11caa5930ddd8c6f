package transport

import (
	"fmt"
	"net/http"
	"strings"
)

// ResponseError is returned when Vault answers with an error status.
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	Errors     []string
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: vault returned status %d", e.Method, e.Path, e.StatusCode)
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, ", ")
	}
	return msg
}

// NotFound reports a 404.
func (e *ResponseError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// PermissionDenied reports a 403.
func (e *ResponseError) PermissionDenied() bool {
	return e.StatusCode == http.StatusForbidden
}

// ConnectionError is returned when the request never produced a response:
// dial and TLS failures, timeouts and cancellation.
type ConnectionError struct {
	Method string
	Path   string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
