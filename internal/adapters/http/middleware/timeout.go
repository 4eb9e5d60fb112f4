package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-saver/internal/adapters/http/dto"
)

// Deadline bounds the request context by timeout. View operations that run
// out of time fail like any other transport error and the handler still
// answers; only a chain that returns without writing gets the 504.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if c.Writer.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}

		c.AbortWithStatusJSON(http.StatusGatewayTimeout, dto.NewErrorResponse(
			dto.ErrorCodeTimeout,
			"request timed out after "+timeout.String(),
		).WithTraceID(dto.GetTraceID(c)))
	}
}
