// Package requestctx carries the authenticated player and locale through a
// request context.
package requestctx

import "context"

// userIDContextKey is the context key for authenticated player identity.
type userIDContextKey struct{}

// WithUserID stores the authenticated player id in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the authenticated player id, or "" when the
// request is anonymous.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}
