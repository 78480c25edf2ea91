package http

import (
	"context"
	"log/slog"

	"github.com/example/custody-scheduler/internal/logging"
)

type contextKey string

const (
	userIDContextKey     contextKey = "user_id"
	entryIDContextKey    contextKey = "entry_id"
	conflictIDContextKey contextKey = "conflict_id"
)

// ContextWithLogger attaches a request scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithUserID returns a derived context carrying the acting staff member.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts the acting staff member if one was supplied.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok && id != ""
}

// ContextWithEntryID injects the schedule entry identifier resolved from the request path.
func ContextWithEntryID(ctx context.Context, entryID string) context.Context {
	return context.WithValue(ctx, entryIDContextKey, entryID)
}

// EntryIDFromContext extracts a schedule entry identifier previously associated with the context.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(entryIDContextKey).(string)
	return id, ok
}

// ContextWithConflictID injects the conflict identifier resolved from the request path.
func ContextWithConflictID(ctx context.Context, conflictID string) context.Context {
	return context.WithValue(ctx, conflictIDContextKey, conflictID)
}

// ConflictIDFromContext extracts a conflict identifier previously associated with the context.
func ConflictIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(conflictIDContextKey).(string)
	return id, ok
}
