package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/hireflow/internal/api/middleware"
	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	PostJob        http.HandlerFunc
	GetJob         http.HandlerFunc
	ApplyToJob     http.HandlerFunc
	ListApps       http.HandlerFunc
	GetApp         http.HandlerFunc
	UpdateAppState http.HandlerFunc
	Schedule       http.HandlerFunc

	ListInterviews   http.HandlerFunc
	GetInterview     http.HandlerFunc
	EditInterview    http.HandlerFunc
	RespondInterview http.HandlerFunc
	CancelInterview  http.HandlerFunc
	InterviewHistory http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/jobs", orNotImplemented(deps.PostJob))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Post("/api/v1/jobs/{jobID}/applications", orNotImplemented(deps.ApplyToJob))

		r.Get("/api/v1/applications", orNotImplemented(deps.ListApps))
		r.Get("/api/v1/applications/{applicationID}", orNotImplemented(deps.GetApp))
		r.Patch("/api/v1/applications/{applicationID}/status", orNotImplemented(deps.UpdateAppState))
		r.Post("/api/v1/applications/{applicationID}/interviews", orNotImplemented(deps.Schedule))

		r.Get("/api/v1/interviews", orNotImplemented(deps.ListInterviews))
		r.Get("/api/v1/interviews/{interviewID}", orNotImplemented(deps.GetInterview))
		r.Patch("/api/v1/interviews/{interviewID}", orNotImplemented(deps.EditInterview))
		r.Post("/api/v1/interviews/{interviewID}/response", orNotImplemented(deps.RespondInterview))
		r.Post("/api/v1/interviews/{interviewID}/cancel", orNotImplemented(deps.CancelInterview))
		r.Get("/api/v1/interviews/{interviewID}/history", orNotImplemented(deps.InterviewHistory))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireRole(models.RoleAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, response.CodeNotImplemented, "Endpoint not yet implemented")
	}
}
