// Package pipeline applies hiring-pipeline decisions atomically. Every
// mutation locks the affected application, re-reads state inside the
// transaction, asks the engine for a decision, and writes the decision and
// its history in one unit. Events are published only after commit.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/cache"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/internal/events"
	"github.com/kiranshivaraju/hireflow/internal/metrics"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Operation names used in logs and metrics.
const (
	opPostJob           = "post_job"
	opApply             = "apply_to_job"
	opApplicationStatus = "update_application_status"
	opSchedule          = "schedule_interview"
	opRespond           = "respond_to_interview"
	opEdit              = "edit_interview"
	opCancel            = "cancel_interview"
)

// Service is the single entry point for pipeline mutations and reads.
type Service struct {
	store   store.Store
	events  events.Publisher
	metrics *metrics.Metrics
	history HistoryRecorder
	jobs    cache.Cache
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to stamp transitions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithJobCache enables a read-through cache for job postings. Jobs are
// immutable once posted.
func WithJobCache(c cache.Cache) Option {
	return func(s *Service) { s.jobs = c }
}

// NewService creates a new Service. pub and m may be nil.
func NewService(st store.Store, pub events.Publisher, m *metrics.Metrics, opts ...Option) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	s := &Service{
		store:   st,
		events:  pub,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JobInput is the payload of a new job posting.
type JobInput struct {
	Title       string
	Description string
}

// PostJob creates a job owned by the calling employer.
func (s *Service) PostJob(ctx context.Context, p models.Principal, in JobInput) (*models.Job, error) {
	job, err := s.postJob(ctx, p, in)
	s.metrics.ObserveDecision(opPostJob, err)
	if err != nil {
		return nil, result(opPostJob, err, "actor_id", p.ID)
	}

	slog.Info("job posted", "job_id", job.ID, "actor_id", p.ID)
	s.publish(ctx, events.Event{
		Type:       events.JobPosted,
		JobID:      job.ID,
		EmployerID: job.EmployerID,
		ActorID:    p.ID,
		OccurredAt: job.CreatedAt,
	})
	return job, nil
}

func (s *Service) postJob(ctx context.Context, p models.Principal, in JobInput) (*models.Job, error) {
	if p.Role != models.RoleEmployer {
		return nil, fmt.Errorf("%w: only employers can post jobs", engine.ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", engine.ErrInvalidInput)
	}

	job := &models.Job{
		ID:          uuid.New(),
		EmployerID:  p.ID,
		Title:       title,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, storeErr(err)
	}
	return job, nil
}

// ApplyToJob creates an application from the calling seeker to jobID.
func (s *Service) ApplyToJob(ctx context.Context, p models.Principal, jobID uuid.UUID, in engine.ApplyInput) (*models.Application, error) {
	var app *models.Application
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if p.Role != models.RoleSeeker {
			return fmt.Errorf("%w: only seekers can apply", engine.ErrForbidden)
		}
		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return storeErr(err)
		}
		if err := tx.LockApplicant(ctx, jobID, p.ID); err != nil {
			return err
		}
		active, err := tx.FindActiveApplication(ctx, jobID, p.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		app, err = engine.DecideApply(job, active, p, in, s.now())
		if err != nil {
			return err
		}
		app.ID = uuid.New()
		return storeErr(tx.CreateApplication(ctx, app))
	})
	s.metrics.ObserveDecision(opApply, err)
	if err != nil {
		return nil, result(opApply, err, "job_id", jobID, "actor_id", p.ID)
	}

	slog.Info("application created", "application_id", app.ID, "job_id", jobID, "actor_id", p.ID)
	s.publish(ctx, events.Event{
		Type:          events.ApplicationCreated,
		JobID:         app.JobID,
		ApplicationID: &app.ID,
		SeekerID:      app.SeekerID,
		EmployerID:    app.EmployerID,
		ActorID:       p.ID,
		To:            string(app.Status),
		OccurredAt:    app.CreatedAt,
	})
	return app, nil
}

// UpdateApplicationStatus moves an application to target. Moving to
// interviewed, hired, or rejected completes the open interview; withdrawing
// cancels it.
func (s *Service) UpdateApplicationStatus(ctx context.Context, p models.Principal, applicationID uuid.UUID, target models.ApplicationStatus) (*models.Application, error) {
	var d *engine.ApplicationDecision
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return storeErr(err)
		}
		open, err := openInterview(ctx, tx, app.ID)
		if err != nil {
			return err
		}

		d, err = engine.DecideApplication(app, open, p, target, s.now())
		if err != nil {
			return err
		}
		if err := tx.UpdateApplicationStatus(ctx, app.ID, d.Application.Status, d.Application.UpdatedAt); err != nil {
			return storeErr(err)
		}
		if d.Cascade != nil {
			return s.applyInterview(ctx, tx, d.Cascade)
		}
		return nil
	})
	s.metrics.ObserveDecision(opApplicationStatus, err)
	if err != nil {
		return nil, result(opApplicationStatus, err, "application_id", applicationID, "actor_id", p.ID, "to", target)
	}

	app := d.Application
	slog.Info("application status changed",
		"application_id", app.ID, "from", d.From, "to", app.Status, "actor_id", p.ID)
	s.publish(ctx, events.Event{
		Type:          events.ApplicationStatusChanged,
		JobID:         app.JobID,
		ApplicationID: &app.ID,
		SeekerID:      app.SeekerID,
		EmployerID:    app.EmployerID,
		ActorID:       p.ID,
		From:          string(d.From),
		To:            string(app.Status),
		OccurredAt:    app.UpdatedAt,
	})

	if c := d.Cascade; c != nil {
		s.metrics.ObserveCascade(c.Interview.Status)
		slog.Info("interview status cascaded",
			"interview_id", c.Interview.ID, "application_id", app.ID,
			"from", c.From, "to", c.Interview.Status, "actor_id", p.ID)
		s.publish(ctx, interviewEvent(events.InterviewStatusChanged, app.JobID, c, p, true))
	}
	return app, nil
}

// openInterview returns the application's non-terminal interview, or nil.
func openInterview(ctx context.Context, tx store.Tx, applicationID uuid.UUID) (*models.Interview, error) {
	iv, err := tx.GetOpenInterview(ctx, applicationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return iv, err
}

// applyInterview writes an interview decision and, when the status moved,
// its history entry.
func (s *Service) applyInterview(ctx context.Context, tx store.Tx, d *engine.InterviewDecision) error {
	if err := tx.UpdateInterview(ctx, d.Interview); err != nil {
		return storeErr(err)
	}
	if !d.StatusChanged {
		return nil
	}
	_, err := s.history.Record(ctx, tx, d.Interview, d.Message)
	return err
}

// publish sends e after commit. Failures are logged and counted. The
// caller's cancellation is detached because the transition is already durable.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.metrics.PublishFailed()
		slog.Warn("event publish failed", "type", e.Type, "event_id", e.ID, "error", err)
	}
}

func interviewEvent(t events.Type, jobID uuid.UUID, d *engine.InterviewDecision, p models.Principal, cascade bool) events.Event {
	iv := d.Interview
	e := events.Event{
		Type:          t,
		JobID:         jobID,
		ApplicationID: &iv.ApplicationID,
		InterviewID:   &iv.ID,
		SeekerID:      iv.SeekerID,
		EmployerID:    iv.EmployerID,
		ActorID:       p.ID,
		Cascade:       cascade,
		Message:       cleanMessage(d.Message),
		OccurredAt:    iv.UpdatedAt,
	}
	if d.StatusChanged {
		e.From = string(d.From)
		e.To = string(iv.Status)
	}
	return e
}
