package auth

import "context"

type contextKey string

const userContextKey contextKey = "fittrack-user"

// ContextWithUser binds the logged in username to the request context.
func ContextWithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userContextKey, username)
}

// UserFromContext returns the username put there by the auth middleware.
func UserFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(userContextKey).(string)
	return username, ok && username != ""
}
