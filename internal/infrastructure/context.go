package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// ContextWithRunID returns a context carrying a freshly generated run ID.
func ContextWithRunID(ctx context.Context) context.Context {
	return WithRunID(ctx, uuid.New().String())
}

// EnsureRunID returns the context unchanged if it already carries a run ID,
// otherwise attaches a new one.
func EnsureRunID(ctx context.Context) context.Context {
	if GetRunID(ctx) != "" {
		return ctx
	}
	return ContextWithRunID(ctx)
}

// WithComponent returns a logger tagged with a component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError returns a logger tagged with an error attribute.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
