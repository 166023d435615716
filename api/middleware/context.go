package middleware

import (
	"context"

	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUsername contextKey = "username"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func UsernameFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUsername)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

// AccessIDFromContext returns the jti of the access token on the request.
func AccessIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxAccessID)
}

// ViewerFromContext builds the entries viewer for the authenticated caller.
func ViewerFromContext(ctx context.Context) entries.Viewer {
	return entries.Viewer{
		Username: UsernameFromContext(ctx),
		Role:     enums.Role(RoleFromContext(ctx)),
	}
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, userID, username string, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxUsername, username)
	return context.WithValue(ctx, ctxRole, string(role))
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
