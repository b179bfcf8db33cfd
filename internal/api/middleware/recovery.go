package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/kiranshivaraju/hireflow/internal/api/response"
)

// Recovery turns a handler panic into a 500 and logs it with the route and
// the principal that triggered it.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, info := withRequestInfo(r)
		defer func() {
			if err := recover(); err != nil {
				args := []any{
					"error", err,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					"route", routePattern(r),
				}
				slog.Error("panic recovered", append(args, info.attrs()...)...)
				response.Internal(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
