// Package middleware provides the HTTP middleware chain: request ids,
// logging, authentication, admin gating and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/contextkeys"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/observability"
)

// Auth authenticates requests and places the actor on the context
type Auth struct {
	service *auth.Service
	logger  *observability.Logger
}

// NewAuth creates the authentication middleware
func NewAuth(service *auth.Service, logger *observability.Logger) *Auth {
	return &Auth{service: service, logger: logger}
}

// Handler requires a valid bearer credential. The resolved actor is
// attached to the context; impersonated requests also carry the admin id.
func (m *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		identity, err := m.service.Authenticate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired credentials")
			return
		}

		ctx := contextkeys.WithActor(r.Context(), identity.User.Actor())
		if identity.ImpersonatedBy != 0 {
			ctx = contextkeys.WithImpersonator(ctx, identity.ImpersonatedBy)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates a subtree to admin actors. It assumes Auth.Handler
// already ran; an absent actor is treated as unauthenticated.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := contextkeys.ActorFrom(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !actor.IsAdmin() {
			httputil.WriteError(w, http.StatusForbidden, "ACCESS_DENIED", "admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
