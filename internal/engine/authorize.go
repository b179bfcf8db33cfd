package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Action is a pipeline operation subject to authorization.
type Action string

const (
	ActionView                Action = "view"
	ActionAdvanceApplication  Action = "advance_application"
	ActionWithdrawApplication Action = "withdraw_application"
	ActionScheduleInterview   Action = "schedule_interview"
	ActionRespondInterview    Action = "respond_interview"
	ActionEditInterview       Action = "edit_interview"
	ActionCancelInterview     Action = "cancel_interview"
)

// actor returns the side that must perform the action, or "" when either
// involved party may.
func (a Action) actor() models.Role {
	switch a {
	case ActionWithdrawApplication, ActionRespondInterview:
		return models.RoleSeeker
	case ActionAdvanceApplication, ActionScheduleInterview, ActionEditInterview, ActionCancelInterview:
		return models.RoleEmployer
	}
	return ""
}

// Parties is the seeker/employer pair that owns a pipeline record.
type Parties struct {
	SeekerID   uuid.UUID
	EmployerID uuid.UUID
}

func ApplicationParties(a *models.Application) Parties {
	return Parties{SeekerID: a.SeekerID, EmployerID: a.EmployerID}
}

func InterviewParties(iv *models.Interview) Parties {
	return Parties{SeekerID: iv.SeekerID, EmployerID: iv.EmployerID}
}

// Visible reports whether p may know the record exists. Admins see everything.
func Visible(p models.Principal, parties Parties) bool {
	if p.Role == models.RoleAdmin {
		return true
	}
	return p.ID != uuid.Nil && (p.ID == parties.SeekerID || p.ID == parties.EmployerID)
}

// Authorize is the single role and ownership predicate for every pipeline
// operation. Principals outside the record get ErrNotFound so the record's
// existence does not leak; involved principals on the wrong side get
// ErrForbidden.
func Authorize(p models.Principal, parties Parties, action Action) error {
	if !Visible(p, parties) {
		return ErrNotFound
	}

	switch action.actor() {
	case "":
		return nil
	case models.RoleSeeker:
		if p.Role == models.RoleSeeker && p.ID == parties.SeekerID {
			return nil
		}
	case models.RoleEmployer:
		if p.Role == models.RoleEmployer && p.ID == parties.EmployerID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires the record's %s", ErrForbidden, action, action.actor())
}
