package handler

import (
	"net/http"
	"time"

	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

type applicationResponse struct {
	*models.Application
	Bucket engine.Bucket `json:"bucket"`
}

func newApplicationResponse(a *models.Application) applicationResponse {
	return applicationResponse{Application: a, Bucket: engine.ApplicationBucket(a.Status)}
}

// NewListApplicationsHandler returns an http.HandlerFunc for
// GET /api/v1/applications.
func NewListApplicationsHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		q, ok := listQuery(w, r)
		if !ok {
			return
		}

		page, err := svc.ListApplications(r.Context(), p, q)
		if err != nil {
			writeError(w, r, err)
			return
		}

		items := make([]applicationResponse, len(page.Items))
		for i, a := range page.Items {
			items[i] = newApplicationResponse(a)
		}
		response.Collection(w, items, pageMeta(page))
	}
}

// NewGetApplicationHandler returns an http.HandlerFunc for
// GET /api/v1/applications/{applicationID}.
func NewGetApplicationHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "applicationID")
		if !ok {
			return
		}

		app, err := svc.GetApplication(r.Context(), p, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, newApplicationResponse(app))
	}
}

// NewUpdateApplicationStatusHandler returns an http.HandlerFunc for
// PATCH /api/v1/applications/{applicationID}/status.
func NewUpdateApplicationStatusHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "applicationID")
		if !ok {
			return
		}

		var req struct {
			Status models.ApplicationStatus `json:"status"`
		}
		if !decode(w, r, &req, false) {
			return
		}
		if req.Status == "" {
			response.Fail(w, response.CodeInvalidRequest, "status is required")
			return
		}

		app, err := svc.UpdateApplicationStatus(r.Context(), p, id, req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, newApplicationResponse(app))
	}
}

// NewScheduleInterviewHandler returns an http.HandlerFunc for
// POST /api/v1/applications/{applicationID}/interviews.
func NewScheduleInterviewHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "applicationID")
		if !ok {
			return
		}

		var req struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			Location    string    `json:"location"`
			StartTime   time.Time `json:"start_time"`
			EndTime     time.Time `json:"end_time"`
		}
		if !decode(w, r, &req, false) {
			return
		}

		iv, err := svc.ScheduleInterview(r.Context(), p, id, engine.ScheduleInput{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, "/api/v1/interviews/"+iv.ID.String(), newInterviewResponse(iv))
	}
}
