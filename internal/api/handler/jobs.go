package handler

import (
	"net/http"

	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/internal/pipeline"
)

// NewPostJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewPostJobHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if !decode(w, r, &req, false) {
			return
		}

		job, err := svc.PostJob(r.Context(), p, pipeline.JobInput{Title: req.Title, Description: req.Description})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, "/api/v1/jobs/"+job.ID.String(), job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}

		job, err := svc.GetJob(r.Context(), p, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewApplyHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/applications.
func NewApplyHandler(svc Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		jobID, ok := pathID(w, r, "jobID")
		if !ok {
			return
		}

		var req struct {
			CoverLetter string  `json:"cover_letter"`
			CVReference string  `json:"cv_reference"`
			MatchScore  float64 `json:"match_score"`
		}
		if !decode(w, r, &req, true) {
			return
		}

		app, err := svc.ApplyToJob(r.Context(), p, jobID, engine.ApplyInput{
			CoverLetter: req.CoverLetter,
			CVReference: req.CVReference,
			MatchScore:  req.MatchScore,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, "/api/v1/applications/"+app.ID.String(), newApplicationResponse(app))
	}
}
