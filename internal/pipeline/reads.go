package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/cache"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// ListQuery selects one page of a principal's records, optionally narrowed
// to a bucket.
type ListQuery struct {
	Bucket string
	Page   int
	Limit  int
}

// Page is one page of results with the total match count.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Limit int
}

// InterviewDetail is an interview with its full history, oldest first.
type InterviewDetail struct {
	Interview *models.Interview
	History   []*models.InterviewHistoryEntry
}

const jobCacheTTL = 10 * time.Minute

// GetJob returns a job. Jobs are visible to every authenticated principal.
// Cache failures fall back to the store.
func (s *Service) GetJob(ctx context.Context, _ models.Principal, id uuid.UUID) (*models.Job, error) {
	if s.jobs != nil {
		if data, found, err := s.jobs.Get(ctx, cache.JobKey(id)); err == nil && found {
			var job models.Job
			if err := json.Unmarshal(data, &job); err == nil {
				return &job, nil
			}
		}
	}

	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, readErr("get job", err)
	}

	if s.jobs != nil {
		if data, err := json.Marshal(job); err == nil {
			if err := s.jobs.Set(ctx, cache.JobKey(id), data, jobCacheTTL); err != nil {
				slog.Warn("job cache write failed", "job_id", id, "error", err)
			}
		}
	}
	return job, nil
}

// GetApplication returns an application the principal is involved in.
func (s *Service) GetApplication(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, readErr("get application", err)
	}
	if err := engine.Authorize(p, engine.ApplicationParties(app), engine.ActionView); err != nil {
		return nil, err
	}
	return app, nil
}

// ListApplications returns the seeker's own applications, the employer's
// received applications, or every application for an admin.
func (s *Service) ListApplications(ctx context.Context, p models.Principal, q ListQuery) (*Page[*models.Application], error) {
	bucket, err := engine.ParseBucket(q.Bucket, engine.BucketActive, engine.BucketArchived)
	if err != nil {
		return nil, err
	}

	filter := store.ApplicationFilter{
		Statuses: engine.ApplicationStatusesIn(bucket),
		Page:     q.Page,
		Limit:    q.Limit,
	}
	switch p.Role {
	case models.RoleSeeker:
		filter.SeekerID = p.ID
	case models.RoleEmployer:
		filter.EmployerID = p.ID
	case models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", engine.ErrForbidden, p.Role)
	}

	items, total, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, readErr("list applications", err)
	}
	limit, _ := store.NormalizePage(q.Page, q.Limit)
	return &Page[*models.Application]{Items: items, Total: total, Page: max(q.Page, 1), Limit: limit}, nil
}

// GetInterview returns an interview the principal is involved in, with its
// history attached.
func (s *Service) GetInterview(ctx context.Context, p models.Principal, id uuid.UUID) (*InterviewDetail, error) {
	iv, err := s.visibleInterview(ctx, p, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListInterviewHistory(ctx, id)
	if err != nil {
		return nil, readErr("list interview history", err)
	}
	return &InterviewDetail{Interview: iv, History: history}, nil
}

// ListInterviews returns interviews the principal is involved in, or every
// interview for an admin.
func (s *Service) ListInterviews(ctx context.Context, p models.Principal, q ListQuery) (*Page[*models.Interview], error) {
	bucket, err := engine.ParseBucket(q.Bucket, engine.BucketUpcoming, engine.BucketHistory)
	if err != nil {
		return nil, err
	}

	filter := store.InterviewFilter{
		Statuses: engine.InterviewStatusesIn(bucket),
		Page:     q.Page,
		Limit:    q.Limit,
	}
	switch p.Role {
	case models.RoleSeeker:
		filter.SeekerID = p.ID
	case models.RoleEmployer:
		filter.EmployerID = p.ID
	case models.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", engine.ErrForbidden, p.Role)
	}

	items, total, err := s.store.ListInterviews(ctx, filter)
	if err != nil {
		return nil, readErr("list interviews", err)
	}
	limit, _ := store.NormalizePage(q.Page, q.Limit)
	return &Page[*models.Interview]{Items: items, Total: total, Page: max(q.Page, 1), Limit: limit}, nil
}

// InterviewHistory returns the interview's status history, oldest first.
func (s *Service) InterviewHistory(ctx context.Context, p models.Principal, id uuid.UUID) ([]*models.InterviewHistoryEntry, error) {
	if _, err := s.visibleInterview(ctx, p, id); err != nil {
		return nil, err
	}
	history, err := s.store.ListInterviewHistory(ctx, id)
	if err != nil {
		return nil, readErr("list interview history", err)
	}
	return history, nil
}

func (s *Service) visibleInterview(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Interview, error) {
	iv, err := s.store.GetInterview(ctx, id)
	if err != nil {
		return nil, readErr("get interview", err)
	}
	if err := engine.Authorize(p, engine.InterviewParties(iv), engine.ActionView); err != nil {
		return nil, err
	}
	return iv, nil
}

// readErr maps a store read failure. Reads never fail an apply, so faults are
// returned wrapped but not as ErrApplyFailed.
func readErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return storeErr(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
