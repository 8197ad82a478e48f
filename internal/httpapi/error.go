// Package httpapi provides the shared plumbing for the API Gateway
// Lambda handlers: the response builder with CORS headers, the request
// body parser, field validators and the error-handling pipeline stage.
package httpapi

import "fmt"

// Error is an error that maps to a specific HTTP response. Handlers
// return it up the call chain; the pipeline stage converts it into a
// response envelope. Message is client-facing, so it must never carry
// internal causes.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// NewError creates an Error with the given status and message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// BadRequest creates a 400 Error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Status: 400, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a 404 Error.
func NotFound(message string) *Error {
	return &Error{Status: 404, Message: message}
}

// MethodNotAllowed creates a 405 Error.
func MethodNotAllowed() *Error {
	return &Error{Status: 405, Message: "Methode wird nicht unterstützt"}
}

// BadGateway creates a 502 Error with a generic message. The real cause
// belongs in the log, not in the response.
func BadGateway(message string) *Error {
	return &Error{Status: 502, Message: message}
}
