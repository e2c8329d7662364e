package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	loggerKey    struct{}
	requestIDKey struct{}
)

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// NewRequestContext tags ctx with a fresh request id and a logger carrying it.
func NewRequestContext(ctx context.Context, base *zap.Logger) (context.Context, string) {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	return ContextWithLogger(ctx, base.With(zap.String("request_id", id))), id
}

// RequestID returns the id set by NewRequestContext, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
