package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey struct{}

// CorrelationIDKey is the log attribute carrying the request correlation ID.
const CorrelationIDKey = "correlation_id"

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// WithCorrelationID returns a context whose logger tags every record with id.
// A new ID is generated when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return WithLogger(ctx, FromContext(ctx).With(slog.String(CorrelationIDKey, id)))
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or fallback.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return fallback
}
