package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

// Logging logs one line per dashboard request once it completes, at a level
// picked from the status. Health paths under /-/ and skipPaths are not
// logged. The query string and the body are never logged: a posted quote
// is user content, not request metadata.
func Logging(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/-/") || slices.Contains(skipPaths, path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// Handlers may have enriched the context logger (session id).
		ctx := c.Request.Context()
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}

		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, slog.String("errors", errs.String()))
		}

		logging.FromContextOr(ctx, logger).LogAttrs(ctx, statusLevel(status), "request completed", attrs...)
	}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
