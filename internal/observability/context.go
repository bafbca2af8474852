package observability

import (
	"context"

	"go.uber.org/zap"
)

type correlationKey struct{}

// WithCorrelationID stores the request correlation id on ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id carried by ctx, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// LoggerFor annotates base with the correlation id of ctx.
func LoggerFor(ctx context.Context, base *zap.Logger) *zap.Logger {
	if id := CorrelationID(ctx); id != "" {
		return base.With(zap.String("correlation_id", id))
	}
	return base
}
