// Package events publishes committed pipeline transitions to subscribers
// outside the service.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a pipeline event. It is also the subject suffix on the bus.
type Type string

const (
	JobPosted                Type = "job.posted"
	ApplicationCreated       Type = "application.created"
	ApplicationStatusChanged Type = "application.status_changed"
	InterviewScheduled       Type = "interview.scheduled"
	InterviewStatusChanged   Type = "interview.status_changed"
	InterviewUpdated         Type = "interview.updated"
)

// Event describes one committed change. From and To are empty for creations
// and edits that did not move the status.
type Event struct {
	ID            uuid.UUID  `json:"id"`
	Type          Type       `json:"type"`
	JobID         uuid.UUID  `json:"job_id"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	InterviewID   *uuid.UUID `json:"interview_id,omitempty"`
	SeekerID      uuid.UUID  `json:"seeker_id,omitempty"`
	EmployerID    uuid.UUID  `json:"employer_id"`
	ActorID       uuid.UUID  `json:"actor_id"`
	From          string     `json:"from,omitempty"`
	To            string     `json:"to,omitempty"`
	Cascade       bool       `json:"cascade,omitempty"`
	Message       *string    `json:"message,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. Used when no bus is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
