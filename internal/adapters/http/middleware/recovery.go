package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-saver/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

// Recovery returns middleware that recovers from panics.
// On panic, it:
//   - Logs the error with full stack trace at ERROR level
//   - Answers 500 with the JSON error envelope on /api paths and a plain
//     text page elsewhere
//
// This middleware should be applied first in the chain to catch panics
// from all subsequent handlers and middleware.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			traceID := dto.GetTraceID(c)

			logging.FromContextOr(c.Request.Context(), logger).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.Abort()
				c.String(http.StatusInternalServerError, "Something went wrong. Please reload the page.")

				return
			}

			errResp := dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred").
				WithTraceID(traceID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
		}()

		c.Next()
	}
}
