package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-saver/internal/domain"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

// ContextKeyTraceID is the gin context key checked first by GetTraceID.
const ContextKeyTraceID = "trace_id"

// GetTraceID returns the identifier to echo in error responses: an explicit
// gin value, the OpenTelemetry trace id, or the X-Request-ID header.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyTraceID); ok {
		if id, ok := v.(string); ok {
			return id
		}

		return ""
	}

	if c.Request == nil {
		return ""
	}

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return c.Request.Header.Get("X-Request-ID")
}

// MapError maps a quotes failure to a status code and error body. Unknown
// errors become a 500 with a generic message.
func MapError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	resp := errorBody(err)

	return resp.Status(), resp
}

func errorBody(err error) *ErrorResponse {
	var qe *domain.QuoteError
	errors.As(err, &qe)

	switch {
	case errors.Is(err, domain.ErrClosed):
		return NewErrorResponse(ErrorCodeSessionClosed, "session closed, reload the page")

	case domain.IsValidation(err):
		var ve *domain.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			return NewErrorResponse(ErrorCodeValidation, err.Error()).
				WithDetails(map[string]string{ve.Field: ve.Message})
		}

		return NewErrorResponse(ErrorCodeValidation, err.Error())

	case domain.IsForbidden(err):
		if qe != nil && qe.StatusCode == http.StatusUnauthorized {
			return NewErrorResponse(ErrorCodeUnauthorized, err.Error())
		}

		return NewErrorResponse(ErrorCodeForbidden, err.Error())

	case domain.IsNotFound(err):
		return NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsUnavailable(err):
		return NewErrorResponse(ErrorCodeUnavailable, "the quotes service is temporarily unavailable")

	case qe != nil:
		return NewErrorResponse(ErrorCodeUpstream, err.Error())

	default:
		return NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// HandleError writes the JSON error response for err, including the trace
// id. Internal errors are logged with full detail.
func HandleError(c *gin.Context, err error) {
	status, resp := MapError(err)
	resp.WithTraceID(GetTraceID(c))

	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("internal error",
			"error", err.Error(),
			"trace_id", resp.TraceID,
		)
	}

	c.JSON(status, resp)
}

// AbortWithError aborts the handler chain with the JSON error response for err.
func AbortWithError(c *gin.Context, err error) {
	status, resp := MapError(err)
	c.AbortWithStatusJSON(status, resp.WithTraceID(GetTraceID(c)))
}
