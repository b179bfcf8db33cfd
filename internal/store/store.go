package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
//
// Reads outside InTx see committed state only. Every pipeline mutation runs
// inside InTx so that the decision and the writes it produces commit together.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)

	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int, error)

	GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	ListInterviews(ctx context.Context, filter InterviewFilter) ([]*models.Interview, int, error)
	ListInterviewHistory(ctx context.Context, interviewID uuid.UUID) ([]*models.InterviewHistoryEntry, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	// InTx runs fn in a single atomic unit. If fn returns an error every write
	// made through tx is discarded and the error is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of the store, valid only inside InTx.
type Tx interface {
	// LockApplication reads the application and holds its lock until the
	// transaction ends. Operations touching an application's interviews take
	// this lock first.
	LockApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	// LockApplicant serializes applications by one seeker to one job.
	LockApplicant(ctx context.Context, jobID, seekerID uuid.UUID) error

	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// FindActiveApplication returns the seeker's application to the job that is
	// neither withdrawn nor rejected, or ErrNotFound.
	FindActiveApplication(ctx context.Context, jobID, seekerID uuid.UUID) (*models.Application, error)
	CreateApplication(ctx context.Context, app *models.Application) error
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, updatedAt time.Time) error

	GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	// GetOpenInterview returns the application's non-terminal interview, or ErrNotFound.
	GetOpenInterview(ctx context.Context, applicationID uuid.UUID) (*models.Interview, error)
	CreateInterview(ctx context.Context, iv *models.Interview) error
	UpdateInterview(ctx context.Context, iv *models.Interview) error

	AppendHistory(ctx context.Context, entry *models.InterviewHistoryEntry) error
}

type ApplicationFilter struct {
	SeekerID   uuid.UUID
	EmployerID uuid.UUID
	JobID      uuid.UUID
	Statuses   []models.ApplicationStatus
	Page       int
	Limit      int
}

type InterviewFilter struct {
	SeekerID      uuid.UUID
	EmployerID    uuid.UUID
	ApplicationID uuid.UUID
	Statuses      []models.InterviewStatus
	Page          int
	Limit         int
}

// NormalizePage clamps pagination parameters and returns limit and offset.
func NormalizePage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
