// Package handler implements the HTTP handlers for the pipeline API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/hireflow/internal/api/middleware"
	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/internal/pipeline"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Pipeline defines the interface the handlers depend on.
type Pipeline interface {
	PostJob(ctx context.Context, p models.Principal, in pipeline.JobInput) (*models.Job, error)
	GetJob(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Job, error)
	ApplyToJob(ctx context.Context, p models.Principal, jobID uuid.UUID, in engine.ApplyInput) (*models.Application, error)

	GetApplication(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, p models.Principal, q pipeline.ListQuery) (*pipeline.Page[*models.Application], error)
	UpdateApplicationStatus(ctx context.Context, p models.Principal, id uuid.UUID, target models.ApplicationStatus) (*models.Application, error)

	ScheduleInterview(ctx context.Context, p models.Principal, applicationID uuid.UUID, in engine.ScheduleInput) (*models.Interview, error)
	GetInterview(ctx context.Context, p models.Principal, id uuid.UUID) (*pipeline.InterviewDetail, error)
	ListInterviews(ctx context.Context, p models.Principal, q pipeline.ListQuery) (*pipeline.Page[*models.Interview], error)
	InterviewHistory(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.InterviewHistoryEntry, error)
	RespondToInterview(ctx context.Context, p models.Principal, id uuid.UUID, target models.InterviewStatus, note *string) (*models.Interview, error)
	EditInterview(ctx context.Context, p models.Principal, id uuid.UUID, patch engine.InterviewPatch) (*models.Interview, error)
	CancelInterview(ctx context.Context, p models.Principal, id uuid.UUID, reason *string) error
}

var _ Pipeline = (*pipeline.Service)(nil)

// writeError maps pipeline errors to the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		response.Fail(w, response.CodeNotFound, "Resource not found")
	case errors.Is(err, engine.ErrForbidden):
		response.Fail(w, response.CodeForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidTransition):
		response.Fail(w, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, engine.ErrConflict):
		response.Fail(w, response.CodeConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidInput):
		response.Fail(w, response.CodeInvalidRequest, err.Error())
	default:
		if !errors.Is(err, pipeline.ErrApplyFailed) {
			slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		}
		response.Internal(w)
	}
}

// principal returns the authenticated principal or writes a 401.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := mw.GetPrincipal(r)
	if !ok {
		response.Fail(w, response.CodeInvalidToken, "Missing principal")
	}
	return p, ok
}

// pathID parses a UUID path parameter or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Fail(w, response.CodeInvalidRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// decode reads a JSON body into v or writes a 400. An empty body is allowed
// when optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		response.Fail(w, response.CodeInvalidRequest, "Invalid JSON body")
		return false
	}
	return true
}

// listQuery reads bucket, page, and limit query parameters.
func listQuery(w http.ResponseWriter, r *http.Request) (pipeline.ListQuery, bool) {
	q := pipeline.ListQuery{Bucket: r.URL.Query().Get("bucket")}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"limit", &q.Limit}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Fail(w, response.CodeInvalidRequest, p.name+" must be a positive integer")
			return q, false
		}
		*p.dst = n
	}
	return q, true
}

func pageMeta[T any](p *pipeline.Page[T]) response.PaginationMeta {
	return response.NewPaginationMeta(p.Page, p.Limit, p.Total)
}
