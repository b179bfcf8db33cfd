package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

type contextKey string

const (
	principalKey   contextKey = "principal"
	requestInfoKey contextKey = "request_info"
)

// requestInfo is installed by the outer middleware so it can report who made
// the request after the inner chain returns. It is only touched by the
// request's own goroutine.
type requestInfo struct {
	principal models.Principal
	known     bool
}

func (i *requestInfo) attrs() []any {
	if !i.known {
		return nil
	}
	return []any{"principal_id", i.principal.ID, "role", i.principal.Role}
}

// withRequestInfo returns the request's info holder, installing one when no
// outer middleware has.
func withRequestInfo(r *http.Request) (*http.Request, *requestInfo) {
	if info, ok := r.Context().Value(requestInfoKey).(*requestInfo); ok {
		return r, info
	}
	info := &requestInfo{}
	return r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)), info
}

// SetPrincipal stores p in ctx and records it for the request log.
func SetPrincipal(ctx context.Context, p models.Principal) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.principal = p
		info.known = true
	}
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(r *http.Request) (models.Principal, bool) {
	p, ok := r.Context().Value(principalKey).(models.Principal)
	return p, ok
}

// routePattern is the matched chi pattern, e.g. /api/v1/interviews/{interviewID}.
// It is only complete once routing has run.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
