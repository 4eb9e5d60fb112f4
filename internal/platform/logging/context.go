package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger = slog.Default()

// Attribute keys the dashboard attaches to request loggers.
const (
	KeyRequestID     = "request_id"
	KeyCorrelationID = "correlation_id"
	KeyTraceID       = "trace_id"
	KeySessionID     = "session_id"
)

// FromContext returns the logger carried by ctx, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, nil)
}

// FromContextOr returns the logger carried by ctx, then fallback, then the
// default logger.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return logger
		}
	}

	if fallback != nil {
		return fallback
	}

	return defaultLogger
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithAttrs returns ctx with its logger extended by attrs.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	return WithContext(ctx, FromContext(ctx).With(args...))
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return WithAttrs(ctx, slog.String(KeyRequestID, id))
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return WithAttrs(ctx, slog.String(KeyCorrelationID, id))
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return WithAttrs(ctx, slog.String(KeyTraceID, id))
}

// WithSessionID tags the logger with the dashboard session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return WithAttrs(ctx, slog.String(KeySessionID, id))
}

// SetDefault installs logger for FromContext and as slog's default.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
