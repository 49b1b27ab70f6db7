package middleware

import (
	"context"
	"net/http"

	"webui-dashboard-api/pkg/auth"
	"webui-dashboard-api/pkg/logger"
	"webui-dashboard-api/pkg/utils"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
	// identitySlotKey holds a *auth.Identity the request logger reads after
	// the handler chain has run.
	identitySlotKey ContextKey = "identity_slot"
)

// RequireIdentity resolves the caller with provider and rejects the request
// when that fails. The identity is stored in the request context.
func RequireIdentity(provider auth.IdentityProvider, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := provider.Resolve(r)
			if err != nil {
				log.Debug("Identity rejected", "path", r.URL.Path, "error", err)
				utils.WriteError(w, err)
				return
			}
			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if slot, ok := ctx.Value(identitySlotKey).(*auth.Identity); ok {
		*slot = identity
	}
	return context.WithValue(ctx, UserContextKey, identity)
}

// IdentityFromContext 从context中获取用户信息
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(UserContextKey).(auth.Identity)
	return identity, ok
}
