package web

import (
	"context"
	"net/http"

	"nutrilens/internal/storage"
)

type contextKey string

const userContextKey contextKey = "web/user"

// WithUser stores the authenticated user in context.
func WithUser(ctx context.Context, user storage.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user from context if present.
func UserFromContext(ctx context.Context) (storage.User, bool) {
	user, ok := ctx.Value(userContextKey).(storage.User)
	return user, ok
}

// UserFromRequest is a convenience wrapper over UserFromContext.
func UserFromRequest(r *http.Request) (storage.User, bool) {
	return UserFromContext(r.Context())
}
