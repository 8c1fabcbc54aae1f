// Package rbac gates routes on the role of the authenticated principal.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/roz-pos/roz/internal/platform/httpx"
	"github.com/roz-pos/roz/internal/shared"
)

// Middleware wires role checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAdmin admits only principals holding the admin role.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.require(func(p shared.Principal) bool { return p.IsAdmin() })
}

// RequireAuthenticated admits any signed-in principal.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.require(func(shared.Principal) bool { return true })
}

func (m Middleware) require(allow func(shared.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok || !allow(p) {
				if m.Logger != nil {
					m.Logger.Info("access denied",
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("actor", shared.ActorFromContext(r.Context())))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", httpx.AccessDeniedMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
