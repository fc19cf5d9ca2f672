package http

import (
	"context"
	"log/slog"

	"github.com/example/bsmanager/internal/logging"
)

type contextKey string

const todoIDContextKey contextKey = "todo_id"

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithTodoID injects the to-do identifier resolved from the request path.
func ContextWithTodoID(ctx context.Context, todoID string) context.Context {
	return context.WithValue(ctx, todoIDContextKey, todoID)
}

// TodoIDFromContext extracts a to-do identifier previously associated with the context.
func TodoIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(todoIDContextKey).(string)
	return id, ok
}
