package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/engine"
	"github.com/kiranshivaraju/hireflow/internal/events"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// ScheduleInterview creates a pending interview for an application.
func (s *Service) ScheduleInterview(ctx context.Context, p models.Principal, applicationID uuid.UUID, in engine.ScheduleInput) (*models.Interview, error) {
	var (
		iv    *models.Interview
		jobID uuid.UUID
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		app, err := tx.LockApplication(ctx, applicationID)
		if err != nil {
			return storeErr(err)
		}
		open, err := openInterview(ctx, tx, app.ID)
		if err != nil {
			return err
		}

		iv, err = engine.DecideSchedule(app, open, p, in, s.now())
		if err != nil {
			return err
		}
		iv.ID = uuid.New()
		jobID = app.JobID
		return storeErr(tx.CreateInterview(ctx, iv))
	})
	s.metrics.ObserveDecision(opSchedule, err)
	if err != nil {
		return nil, result(opSchedule, err, "application_id", applicationID, "actor_id", p.ID)
	}

	slog.Info("interview scheduled", "interview_id", iv.ID, "application_id", iv.ApplicationID, "actor_id", p.ID)
	s.publish(ctx, events.Event{
		Type:          events.InterviewScheduled,
		JobID:         jobID,
		ApplicationID: &iv.ApplicationID,
		InterviewID:   &iv.ID,
		SeekerID:      iv.SeekerID,
		EmployerID:    iv.EmployerID,
		ActorID:       p.ID,
		To:            string(iv.Status),
		OccurredAt:    iv.CreatedAt,
	})
	return iv, nil
}

// RespondToInterview records the seeker's answer to an interview invitation.
func (s *Service) RespondToInterview(ctx context.Context, p models.Principal, interviewID uuid.UUID, target models.InterviewStatus, note *string) (*models.Interview, error) {
	d, err := s.decideInterview(ctx, opRespond, p, interviewID, func(app *models.Application, iv *models.Interview) (*engine.InterviewDecision, error) {
		return engine.DecideRespond(app, iv, p, target, note, s.now())
	})
	if err != nil {
		return nil, err
	}
	return d.Interview, nil
}

// EditInterview applies an employer patch. Editing an interview whose
// reschedule was requested reschedules it.
func (s *Service) EditInterview(ctx context.Context, p models.Principal, interviewID uuid.UUID, patch engine.InterviewPatch) (*models.Interview, error) {
	d, err := s.decideInterview(ctx, opEdit, p, interviewID, func(app *models.Application, iv *models.Interview) (*engine.InterviewDecision, error) {
		return engine.DecideEdit(app, iv, p, patch, s.now())
	})
	if err != nil {
		return nil, err
	}
	return d.Interview, nil
}

// CancelInterview cancels an open interview. reason, when set, is recorded
// in history.
func (s *Service) CancelInterview(ctx context.Context, p models.Principal, interviewID uuid.UUID, reason *string) error {
	_, err := s.decideInterview(ctx, opCancel, p, interviewID, func(_ *models.Application, iv *models.Interview) (*engine.InterviewDecision, error) {
		return engine.DecideCancel(iv, p, reason, s.now())
	})
	return err
}

type interviewDecider func(app *models.Application, iv *models.Interview) (*engine.InterviewDecision, error)

// decideInterview runs one interview operation. The interview's application
// is locked before the interview is re-read, so seeker responses and
// application cascades on the same interview are serialized.
func (s *Service) decideInterview(ctx context.Context, op string, p models.Principal, interviewID uuid.UUID, decide interviewDecider) (*engine.InterviewDecision, error) {
	var (
		d     *engine.InterviewDecision
		jobID uuid.UUID
	)
	err := s.lockedInterview(ctx, interviewID, func(tx store.Tx, app *models.Application, iv *models.Interview) error {
		var err error
		d, err = decide(app, iv)
		if err != nil {
			return err
		}
		jobID = app.JobID
		return s.applyInterview(ctx, tx, d)
	})
	s.metrics.ObserveDecision(op, err)
	if err != nil {
		return nil, result(op, err, "interview_id", interviewID, "actor_id", p.ID)
	}

	iv := d.Interview
	t := events.InterviewUpdated
	if d.StatusChanged {
		t = events.InterviewStatusChanged
		slog.Info("interview status changed",
			"interview_id", iv.ID, "application_id", iv.ApplicationID,
			"from", d.From, "to", iv.Status, "actor_id", p.ID)
	} else {
		slog.Info("interview updated", "interview_id", iv.ID, "actor_id", p.ID)
	}
	s.publish(ctx, interviewEvent(t, jobID, d, p, false))
	return d, nil
}

// lockedInterview resolves the interview's application, locks it, and calls
// fn with both records read inside the transaction.
func (s *Service) lockedInterview(ctx context.Context, interviewID uuid.UUID, fn func(tx store.Tx, app *models.Application, iv *models.Interview) error) error {
	ref, err := s.store.GetInterview(ctx, interviewID)
	if err != nil {
		return storeErr(err)
	}
	return s.store.InTx(ctx, func(tx store.Tx) error {
		app, err := tx.LockApplication(ctx, ref.ApplicationID)
		if err != nil {
			return storeErr(err)
		}
		iv, err := tx.GetInterview(ctx, interviewID)
		if err != nil {
			return storeErr(err)
		}
		return fn(tx, app, iv)
	})
}
