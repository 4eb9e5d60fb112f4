package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/quote-saver/internal/adapters/clients"
	"github.com/jsamuelsen/quote-saver/internal/domain"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrorResponse is an error payload from the Quotes Service. The service
// answers with {"msg": "..."} (JWT middleware and its own handlers); nested
// {"error": {"code", "message"}} and flat {"message"} bodies are also accepted.
type ErrorResponse struct {
	Msg     string      `json:"msg,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error form.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetMessage returns the first non-empty message field.
func (e *ErrorResponse) GetMessage() string {
	switch {
	case e.Error.Message != "":
		return e.Error.Message
	case e.Message != "":
		return e.Message
	default:
		return e.Msg
	}
}

// ParseErrorResponse parses an error body. Returns nil when the body is empty,
// not JSON, or carries no message.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&errResp); err != nil {
		return nil
	}

	if errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapHTTPError maps a failed exchange with the Quotes Service to a
// *domain.QuoteError. clientErr produces a transport error; a non-2xx resp
// produces a status error whose cause is the matching typed domain error.
// Returns nil for a 2xx response.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation string) error {
	if clientErr != nil {
		return domain.NewTransportError(operation, mapClientError(clientErr, serviceName))
	}

	if resp == nil {
		return domain.NewTransportError(operation, domain.NewUnavailableError(serviceName, "no response received"))
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var errResp *ErrorResponse
	if resp.Body != nil {
		errResp = ParseErrorResponse(resp.Body)
	}

	return domain.NewStatusError(operation, resp.StatusCode, mapStatusCode(resp.StatusCode, errResp, serviceName, operation))
}

// mapClientError keeps the client error in the chain so callers can still
// match clients.ErrCircuitOpen or context.Canceled.
func mapClientError(err error, serviceName string) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, clients.ErrCircuitOpen):
		return fmt.Errorf("%w: %w", domain.NewUnavailableError(serviceName, "circuit breaker open"), err)
	case errors.Is(err, clients.ErrRateLimited):
		return fmt.Errorf("%w: %w", domain.NewUnavailableError(serviceName, "client rate limit"), err)
	default:
		return fmt.Errorf("%w: %w", domain.NewUnavailableError(serviceName, "unreachable"), err)
	}
}

// mapStatusCode translates an HTTP status to a typed domain error.
func mapStatusCode(status int, errResp *ErrorResponse, serviceName, operation string) error {
	message := defaultMessageForStatus(status, operation)
	if errResp != nil {
		message = errResp.GetMessage()
	}

	switch {
	case status == http.StatusUnauthorized:
		return domain.NewForbiddenError(operation, "authentication required: "+message)
	case status == http.StatusForbidden:
		return domain.NewForbiddenError(operation, message)
	case status == http.StatusNotFound:
		return domain.NewNotFoundError(serviceName + " " + operation + " route")
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return domain.NewValidationError("", message)
	case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return domain.NewUnavailableError(serviceName, message)
	default:
		return errors.New(message)
	}
}

// defaultMessageForStatus returns a message for a status without an error body.
func defaultMessageForStatus(status int, operation string) string {
	switch status {
	case http.StatusUnauthorized:
		return "missing or invalid token"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return fmt.Sprintf("%s failed with status %d", operation, status)
	}
}
