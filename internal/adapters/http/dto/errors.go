// Package dto holds the JSON shapes of the dashboard API and the mapping
// from quotes failures to HTTP errors.
package dto

import "net/http"

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail carries a machine-readable code, a message, and per-field
// messages for rejected input.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrorCodeBadRequest    = "BAD_REQUEST"
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeUnauthorized  = "UNAUTHORIZED"
	ErrorCodeForbidden     = "FORBIDDEN"
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeSessionClosed = "SESSION_CLOSED"
	ErrorCodeInternal      = "INTERNAL_ERROR"
	ErrorCodeUpstream      = "UPSTREAM_ERROR"
	ErrorCodeUnavailable   = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout       = "TIMEOUT"
)

var codeStatus = map[string]int{
	ErrorCodeBadRequest:    http.StatusBadRequest,
	ErrorCodeValidation:    http.StatusBadRequest,
	ErrorCodeUnauthorized:  http.StatusUnauthorized,
	ErrorCodeForbidden:     http.StatusForbidden,
	ErrorCodeNotFound:      http.StatusNotFound,
	ErrorCodeSessionClosed: http.StatusGone,
	ErrorCodeInternal:      http.StatusInternalServerError,
	ErrorCodeUpstream:      http.StatusBadGateway,
	ErrorCodeUnavailable:   http.StatusServiceUnavailable,
	ErrorCodeTimeout:       http.StatusGatewayTimeout,
}

// HTTPStatusFromCode returns the status that goes with code; unknown codes
// are 500.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// NewErrorResponse creates an error body without details.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// WithDetails attaches per-field messages. An empty map is ignored.
func (e *ErrorResponse) WithDetails(details map[string]string) *ErrorResponse {
	if len(details) > 0 {
		e.Error.Details = details
	}

	return e
}

// WithTraceID sets the id echoed back to the caller.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// Status is HTTPStatusFromCode of the response's code.
func (e *ErrorResponse) Status() int {
	return HTTPStatusFromCode(e.Error.Code)
}
