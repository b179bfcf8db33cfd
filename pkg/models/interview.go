package models

import (
	"time"

	"github.com/google/uuid"
)

// InterviewStatus is the lifecycle state of an Interview.
type InterviewStatus string

const (
	InterviewPending             InterviewStatus = "pending"
	InterviewAccepted            InterviewStatus = "accepted"
	InterviewDeclined            InterviewStatus = "declined"
	InterviewRescheduleRequested InterviewStatus = "reschedule_requested"
	InterviewScheduled           InterviewStatus = "scheduled"
	InterviewCompleted           InterviewStatus = "completed"
	InterviewCancelled           InterviewStatus = "cancelled"
	// InterviewRescheduled is reserved for a superseding-record model. Edits
	// reuse the same record, so nothing produces it.
	InterviewRescheduled InterviewStatus = "rescheduled"
)

// OpenInterviewStatuses lists the non-terminal statuses. At most one interview
// per application may hold one of these.
var OpenInterviewStatuses = []InterviewStatus{
	InterviewPending,
	InterviewAccepted,
	InterviewScheduled,
	InterviewRescheduleRequested,
}

// Terminal reports whether no further transition is permitted from s.
func (s InterviewStatus) Terminal() bool {
	switch s {
	case InterviewCompleted, InterviewCancelled, InterviewDeclined, InterviewRescheduled:
		return true
	}
	return false
}

// Valid reports whether s is a known interview status.
func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewPending, InterviewAccepted, InterviewDeclined, InterviewRescheduleRequested,
		InterviewScheduled, InterviewCompleted, InterviewCancelled, InterviewRescheduled:
		return true
	}
	return false
}

// Interview is an engagement tied to exactly one Application. Seeker and
// employer ids are copied from the application for authorization checks.
type Interview struct {
	ID            uuid.UUID       `db:"id"             json:"id"`
	ApplicationID uuid.UUID       `db:"application_id" json:"application_id"`
	EmployerID    uuid.UUID       `db:"employer_id"    json:"employer_id"`
	SeekerID      uuid.UUID       `db:"seeker_id"      json:"seeker_id"`
	Status        InterviewStatus `db:"status"         json:"status"`
	Title         string          `db:"title"          json:"title"`
	Description   string          `db:"description"    json:"description"`
	Location      string          `db:"location"       json:"location"`
	StartTime     time.Time       `db:"start_time"     json:"start_time"`
	EndTime       time.Time       `db:"end_time"       json:"end_time"`
	CreatedAt     time.Time       `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"     json:"updated_at"`
}

// InterviewHistoryEntry is an immutable audit record of one interview status change.
type InterviewHistoryEntry struct {
	ID           uuid.UUID       `db:"id"             json:"id"`
	InterviewID  uuid.UUID       `db:"interview_id"   json:"interview_id"`
	StatusAtTime InterviewStatus `db:"status_at_time" json:"status_at_time"`
	Message      *string         `db:"message"        json:"message,omitempty"`
	CreatedAt    time.Time       `db:"created_at"     json:"created_at"`
}

// InterviewStatuses lists every interview status.
var InterviewStatuses = []InterviewStatus{
	InterviewPending,
	InterviewAccepted,
	InterviewDeclined,
	InterviewRescheduleRequested,
	InterviewScheduled,
	InterviewCompleted,
	InterviewCancelled,
	InterviewRescheduled,
}
