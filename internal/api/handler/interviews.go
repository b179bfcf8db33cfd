package handler

import (
	"net/http"
	"time"

	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

type interviewResponse struct {
	*models.Interview
	Bucket  engine.Bucket                   `json:"bucket"`
	History []*models.InterviewHistoryEntry `json:"history,omitempty"`
}

func newInterviewResponse(iv *models.Interview) interviewResponse {
	return interviewResponse{Interview: iv, Bucket: engine.InterviewBucket(iv.Status)}
}

// NewListInterviewsHandler returns an http.HandlerFunc for
// GET /api/v1/interviews.
func NewListInterviewsHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		q, ok := listQuery(w, r)
		if !ok {
			return
		}

		page, err := svc.ListInterviews(r.Context(), p, q)
		if err != nil {
			writeError(w, r, err)
			return
		}

		items := make([]interviewResponse, len(page.Items))
		for i, iv := range page.Items {
			items[i] = newInterviewResponse(iv)
		}
		response.Collection(w, items, pageMeta(page))
	}
}

// NewGetInterviewHandler returns an http.HandlerFunc for
// GET /api/v1/interviews/{interviewID}. The history is attached.
func NewGetInterviewHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "interviewID")
		if !ok {
			return
		}

		detail, err := svc.GetInterview(r.Context(), p, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := newInterviewResponse(detail.Interview)
		resp.History = detail.History
		if resp.History == nil {
			resp.History = []*models.InterviewHistoryEntry{}
		}
		response.JSON(w, resp)
	}
}

// NewInterviewHistoryHandler returns an http.HandlerFunc for
// GET /api/v1/interviews/{interviewID}/history.
func NewInterviewHistoryHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "interviewID")
		if !ok {
			return
		}

		entries, err := svc.InterviewHistory(r.Context(), p, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if entries == nil {
			entries = []*models.InterviewHistoryEntry{}
		}
		response.JSON(w, entries)
	}
}

// NewRespondHandler returns an http.HandlerFunc for
// POST /api/v1/interviews/{interviewID}/response.
func NewRespondHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "interviewID")
		if !ok {
			return
		}

		var req struct {
			Status models.InterviewStatus `json:"status"`
			Note   *string                `json:"note"`
		}
		if !decode(w, r, &req, false) {
			return
		}
		if req.Status == "" {
			response.Fail(w, response.CodeInvalidRequest, "status is required")
			return
		}

		iv, err := svc.RespondToInterview(r.Context(), p, id, req.Status, req.Note)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, newInterviewResponse(iv))
	}
}

// NewEditInterviewHandler returns an http.HandlerFunc for
// PATCH /api/v1/interviews/{interviewID}.
func NewEditInterviewHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "interviewID")
		if !ok {
			return
		}

		var req struct {
			Title       *string    `json:"title"`
			Description *string    `json:"description"`
			Location    *string    `json:"location"`
			StartTime   *time.Time `json:"start_time"`
			EndTime     *time.Time `json:"end_time"`
			Message     *string    `json:"message"`
		}
		if !decode(w, r, &req, false) {
			return
		}

		iv, err := svc.EditInterview(r.Context(), p, id, engine.InterviewPatch{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Message:     req.Message,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, newInterviewResponse(iv))
	}
}

// NewCancelInterviewHandler returns an http.HandlerFunc for
// POST /api/v1/interviews/{interviewID}/cancel.
func NewCancelInterviewHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "interviewID")
		if !ok {
			return
		}

		var req struct {
			Reason *string `json:"reason"`
		}
		if !decode(w, r, &req, true) {
			return
		}

		if err := svc.CancelInterview(r.Context(), p, id, req.Reason); err != nil {
			writeError(w, r, err)
			return
		}
		response.NoContent(w)
	}
}
