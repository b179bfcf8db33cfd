package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// ApplicationDecision is the outcome of an accepted application transition.
type ApplicationDecision struct {
	Application *models.Application
	From        models.ApplicationStatus
	// Cascade is set when the transition closes the application's open
	// interview. It must be applied in the same atomic unit.
	Cascade *InterviewDecision
}

const withdrawnMessage = "application withdrawn"

// applicationAction maps a target status to the action that reaches it.
// Statuses with no inbound edge (applied, unknown values) map to "".
func applicationAction(target models.ApplicationStatus) Action {
	switch target {
	case models.ApplicationShortlisted, models.ApplicationInterviewed,
		models.ApplicationHired, models.ApplicationRejected:
		return ActionAdvanceApplication
	case models.ApplicationWithdrawn:
		return ActionWithdrawApplication
	}
	return ""
}

// DecideApplication evaluates moving app to target on behalf of p. open is the
// application's non-terminal interview, or nil. Neither argument is modified.
//
// There is no forward-only ordering between the non-terminal statuses: the
// decision enforces ownership and terminality only.
func DecideApplication(app *models.Application, open *models.Interview, p models.Principal, target models.ApplicationStatus, now time.Time) (*ApplicationDecision, error) {
	parties := ApplicationParties(app)

	action := applicationAction(target)
	if action == "" {
		// Only the employer may drive an application's status; everyone else
		// is refused before the target is judged.
		if err := Authorize(p, parties, ActionAdvanceApplication); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %q is not a reachable application status", ErrInvalidTransition, target)
	}
	if err := Authorize(p, parties, action); err != nil {
		return nil, err
	}

	if app.Status.Terminal() {
		return nil, fmt.Errorf("%w: application is %s", ErrInvalidTransition, app.Status)
	}
	if app.Status == target {
		return nil, fmt.Errorf("%w: application is already %s", ErrInvalidTransition, target)
	}

	next := *app
	next.Status = target
	next.UpdatedAt = now

	d := &ApplicationDecision{Application: &next, From: app.Status}

	if open != nil && !open.Status.Terminal() {
		switch target {
		case models.ApplicationInterviewed, models.ApplicationHired, models.ApplicationRejected:
			d.Cascade = cascadeInterview(open, models.InterviewCompleted, nil, now)
		case models.ApplicationWithdrawn:
			msg := withdrawnMessage
			d.Cascade = cascadeInterview(open, models.InterviewCancelled, &msg, now)
		}
	}

	return d, nil
}

func cascadeInterview(iv *models.Interview, to models.InterviewStatus, msg *string, now time.Time) *InterviewDecision {
	next := *iv
	next.Status = to
	next.UpdatedAt = now
	return &InterviewDecision{
		Interview:     &next,
		From:          iv.Status,
		StatusChanged: true,
		Message:       msg,
	}
}

// ApplyInput is the seeker-supplied payload of a new application.
type ApplyInput struct {
	CoverLetter string
	CVReference string
	MatchScore  float64
}

// DecideApply evaluates p applying to job. active is the seeker's existing
// application to the job that is neither withdrawn nor rejected, or nil. The
// returned application has no ID; the caller assigns one.
func DecideApply(job *models.Job, active *models.Application, p models.Principal, in ApplyInput, now time.Time) (*models.Application, error) {
	if p.Role != models.RoleSeeker {
		return nil, fmt.Errorf("%w: only seekers can apply", ErrForbidden)
	}
	if math.IsNaN(in.MatchScore) || math.IsInf(in.MatchScore, 0) {
		return nil, fmt.Errorf("%w: match_score must be a finite number", ErrInvalidInput)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: application %s to this job is still %s", ErrConflict, active.ID, active.Status)
	}

	return &models.Application{
		JobID:       job.ID,
		SeekerID:    p.ID,
		EmployerID:  job.EmployerID,
		Status:      models.ApplicationApplied,
		MatchScore:  in.MatchScore,
		CoverLetter: in.CoverLetter,
		CVReference: in.CVReference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
