package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/auth"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Auth provides authentication and role-checking middleware.
type Auth struct {
	resolver auth.Resolver
}

// NewAuth creates a new Auth middleware.
func NewAuth(r auth.Resolver) *Auth {
	return &Auth{resolver: r}
}

// Authenticate resolves the Bearer credential to a principal and stores it in
// the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := extractBearerToken(r)
		if credential == "" {
			response.Fail(w, response.CodeInvalidToken, "Missing or invalid Authorization header")
			return
		}

		p, err := a.resolver.Resolve(r.Context(), credential)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				response.Fail(w, response.CodeInvalidToken, "Invalid credentials")
				return
			}
			slog.Error("credential resolution failed", "error", err, "path", r.URL.Path)
			response.Fail(w, response.CodeInternal, "Failed to validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), p)))
	})
}

// RequireRole returns middleware that admits only principals holding one of
// roles. Ownership checks happen later, in the pipeline.
func (a *Auth) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r)
			if !ok {
				response.Fail(w, response.CodeInvalidToken, "Missing principal")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Fail(w, response.CodeForbidden, "Insufficient permissions")
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
