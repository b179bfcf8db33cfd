package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// InterviewDecision is the outcome of an accepted interview operation.
type InterviewDecision struct {
	Interview *models.Interview
	From      models.InterviewStatus
	// StatusChanged is true when a history entry must be appended.
	StatusChanged bool
	Message       *string
}

// ScheduleInput is the employer-supplied payload for a new interview.
type ScheduleInput struct {
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
}

// InterviewPatch holds the employer-editable fields. Nil fields are unchanged.
type InterviewPatch struct {
	Title       *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	// Message is recorded in history when the edit changes the status.
	Message *string
}

func (p InterviewPatch) empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.StartTime == nil && p.EndTime == nil
}

// respondEdges lists the statuses a seeker may move an interview to from each
// status. scheduled is the employer's counter-offer after a reschedule request
// and is confirmable like pending.
var respondEdges = map[models.InterviewStatus][]models.InterviewStatus{
	models.InterviewPending: {
		models.InterviewAccepted, models.InterviewDeclined, models.InterviewRescheduleRequested,
	},
	models.InterviewScheduled: {
		models.InterviewAccepted, models.InterviewDeclined, models.InterviewRescheduleRequested,
	},
	models.InterviewAccepted: {
		models.InterviewRescheduleRequested,
	},
}

func validWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", ErrInvalidInput)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidInput)
	}
	return nil
}

// DecideSchedule evaluates creating an interview for app. open is the
// application's non-terminal interview, or nil. The returned interview has no
// ID; the caller assigns one.
func DecideSchedule(app *models.Application, open *models.Interview, p models.Principal, in ScheduleInput, now time.Time) (*models.Interview, error) {
	if err := Authorize(p, ApplicationParties(app), ActionScheduleInterview); err != nil {
		return nil, err
	}
	if err := validWindow(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, fmt.Errorf("%w: application is %s", ErrInvalidTransition, app.Status)
	}
	if open != nil && !open.Status.Terminal() {
		return nil, fmt.Errorf("%w: application already has an open interview %s", ErrConflict, open.ID)
	}

	return &models.Interview{
		ApplicationID: app.ID,
		EmployerID:    app.EmployerID,
		SeekerID:      app.SeekerID,
		Status:        models.InterviewPending,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Location:      in.Location,
		StartTime:     in.StartTime.UTC(),
		EndTime:       in.EndTime.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// checkLive rejects operations on a terminal interview or one whose
// application has already resolved.
func checkLive(app *models.Application, iv *models.Interview) error {
	if iv.Status.Terminal() {
		return fmt.Errorf("%w: interview is %s", ErrInvalidTransition, iv.Status)
	}
	if app != nil && app.Status.Terminal() {
		return fmt.Errorf("%w: application is %s", ErrInvalidTransition, app.Status)
	}
	return nil
}

// DecideRespond evaluates the seeker's response to iv. app is the owning
// application.
func DecideRespond(app *models.Application, iv *models.Interview, p models.Principal, target models.InterviewStatus, note *string, now time.Time) (*InterviewDecision, error) {
	if err := Authorize(p, InterviewParties(iv), ActionRespondInterview); err != nil {
		return nil, err
	}
	if err := checkLive(app, iv); err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range respondEdges[iv.Status] {
		if s == target {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot respond %q to a %s interview", ErrInvalidTransition, target, iv.Status)
	}

	next := *iv
	next.Status = target
	next.UpdatedAt = now
	return &InterviewDecision{Interview: &next, From: iv.Status, StatusChanged: true, Message: note}, nil
}

// DecideEdit evaluates an employer edit of iv. An edit while the seeker has
// requested a reschedule is the employer's counter-offer and moves the
// interview to scheduled.
func DecideEdit(app *models.Application, iv *models.Interview, p models.Principal, patch InterviewPatch, now time.Time) (*InterviewDecision, error) {
	if err := Authorize(p, InterviewParties(iv), ActionEditInterview); err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if err := checkLive(app, iv); err != nil {
		return nil, err
	}

	next := *iv
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Location != nil {
		next.Location = *patch.Location
	}
	if patch.StartTime != nil {
		next.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		next.EndTime = patch.EndTime.UTC()
	}
	if err := validWindow(next.StartTime, next.EndTime); err != nil {
		return nil, err
	}
	next.UpdatedAt = now

	d := &InterviewDecision{Interview: &next, From: iv.Status}
	if iv.Status == models.InterviewRescheduleRequested {
		next.Status = models.InterviewScheduled
		d.StatusChanged = true
		d.Message = patch.Message
	}
	return d, nil
}

// DecideCancel evaluates the employer cancelling iv.
func DecideCancel(iv *models.Interview, p models.Principal, reason *string, now time.Time) (*InterviewDecision, error) {
	if err := Authorize(p, InterviewParties(iv), ActionCancelInterview); err != nil {
		return nil, err
	}
	if iv.Status.Terminal() {
		return nil, fmt.Errorf("%w: interview is %s", ErrInvalidTransition, iv.Status)
	}
	return cascadeInterview(iv, models.InterviewCancelled, reason, now), nil
}
