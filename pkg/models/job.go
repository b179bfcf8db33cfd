package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is a posting seekers apply to. Only the fields the pipeline needs are kept.
type Job struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	EmployerID  uuid.UUID `db:"employer_id" json:"employer_id"`
	Title       string    `db:"title"       json:"title"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}
