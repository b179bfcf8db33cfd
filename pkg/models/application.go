package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the lifecycle state of an Application.
type ApplicationStatus string

const (
	ApplicationApplied     ApplicationStatus = "applied"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationInterviewed ApplicationStatus = "interviewed"
	ApplicationHired       ApplicationStatus = "hired"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationWithdrawn   ApplicationStatus = "withdrawn"
)

// Terminal reports whether no further transition is permitted from s.
func (s ApplicationStatus) Terminal() bool {
	switch s {
	case ApplicationHired, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationApplied, ApplicationShortlisted, ApplicationInterviewed,
		ApplicationHired, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// Application is a seeker's submission against a job. It is the root of
// authorization for the pipeline: it carries the seeker/employer pair.
type Application struct {
	ID          uuid.UUID         `db:"id"           json:"id"`
	JobID       uuid.UUID         `db:"job_id"       json:"job_id"`
	SeekerID    uuid.UUID         `db:"seeker_id"    json:"seeker_id"`
	EmployerID  uuid.UUID         `db:"employer_id"  json:"employer_id"`
	Status      ApplicationStatus `db:"status"       json:"status"`
	MatchScore  float64           `db:"match_score"  json:"match_score"`
	CoverLetter string            `db:"cover_letter" json:"cover_letter"`
	CVReference string            `db:"cv_reference" json:"cv_reference"`
	CreatedAt   time.Time         `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"   json:"updated_at"`
}

// ApplicationStatuses lists every application status in pipeline order.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationApplied,
	ApplicationShortlisted,
	ApplicationInterviewed,
	ApplicationHired,
	ApplicationRejected,
	ApplicationWithdrawn,
}
