// Package middleware provides HTTP middleware for the Gin framework.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

const (
	// HeaderRequestID identifies a single dashboard request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID identifies the user action a request belongs to.
	// It is kept when an upstream proxy already set one.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin.Context key of the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin.Context key of the correlation ID.
	ContextKeyCorrelationID = "correlation_id"

	// maxIDLength bounds ids taken from the client. Longer ones are replaced.
	maxIDLength = 128
)

// traceID is an id carried by a header. It is accepted from the caller when
// well formed, generated otherwise, echoed on the response and forwarded on
// Quotes Service calls.
type traceID struct {
	header string
	ginKey string
	log    func(context.Context, string) context.Context
}

type idCtxKey string

var (
	requestID     = traceID{HeaderRequestID, ContextKeyRequestID, logging.WithRequestID}
	correlationID = traceID{HeaderCorrelationID, ContextKeyCorrelationID, logging.WithCorrelationID}

	// forwarded lists the ids copied onto outgoing requests.
	forwarded = []traceID{requestID, correlationID}
)

// RequestID returns middleware that assigns every request an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return requestID.middleware()
}

// CorrelationID returns middleware that assigns every request an
// X-Correlation-ID, keeping the one set upstream.
func CorrelationID() gin.HandlerFunc {
	return correlationID.middleware()
}

func (t traceID) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(t.header)
		if !validID(id) {
			id = uuid.NewString()
		}

		c.Set(t.ginKey, id)
		c.Header(t.header, id)

		ctx := t.log(c.Request.Context(), id)
		c.Request = c.Request.WithContext(t.store(ctx, id))

		c.Next()
	}
}

func (t traceID) store(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idCtxKey(t.header), id)
}

func (t traceID) load(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(idCtxKey(t.header)).(string)

	return id
}

// validID accepts non-empty printable ASCII up to maxIDLength.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}

	return true
}

// RequestIDFromContext returns the request ID stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return requestID.load(ctx)
}

// CorrelationIDFromContext returns the correlation ID stored by
// CorrelationID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return correlationID.load(ctx)
}

// ContextWithRequestID stores a request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return requestID.store(ctx, id)
}

// ContextWithCorrelationID stores a correlation ID in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return correlationID.store(ctx, id)
}

// ForwardIDs copies the ids found in ctx onto h.
func ForwardIDs(ctx context.Context, h http.Header) {
	for _, t := range forwarded {
		if id := t.load(ctx); id != "" {
			h.Set(t.header, id)
		}
	}
}

// GetRequestID returns the request ID of c, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID of c, or "".
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}
