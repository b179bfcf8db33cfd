package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const (
	jobColumns         = `id, employer_id, title, description, created_at`
	applicationColumns = `id, job_id, seeker_id, employer_id, status, match_score, cover_letter, cv_reference, created_at, updated_at`
	interviewColumns   = `id, application_id, employer_id, seeker_id, status, title, description, location, start_time, end_time, created_at, updated_at`
	apiKeyColumns      = `id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at`
)

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InTx runs fn inside a read-committed transaction. Row locks taken through
// tx are held until commit or rollback.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.EmployerID, job.Title, job.Description, job.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return getJob(ctx, s.pool, id)
}

func getJob(ctx context.Context, q querier, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := q.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id).
		Scan(&j.ID, &j.EmployerID, &j.Title, &j.Description, &j.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// --- Applications ---

func scanApplication(row scanner) (*models.Application, error) {
	var a models.Application
	var status string
	if err := row.Scan(&a.ID, &a.JobID, &a.SeekerID, &a.EmployerID, &status, &a.MatchScore,
		&a.CoverLetter, &a.CVReference, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = models.ApplicationStatus(status)
	return &a, nil
}

func (s *PostgresStore) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	a, err := scanApplication(s.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*models.Application, int, error) {
	w := newWhere()
	w.eqUUID("seeker_id", filter.SeekerID)
	w.eqUUID("employer_id", filter.EmployerID)
	w.eqUUID("job_id", filter.JobID)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		w.add("status = ANY($%d)", statuses)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM applications"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	limit, offset := NormalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		applicationColumns, w.sql(), len(w.args)+1, len(w.args)+2)

	rows, err := s.pool.Query(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

// --- Interviews ---

func scanInterview(row scanner) (*models.Interview, error) {
	var iv models.Interview
	var status string
	if err := row.Scan(&iv.ID, &iv.ApplicationID, &iv.EmployerID, &iv.SeekerID, &status,
		&iv.Title, &iv.Description, &iv.Location, &iv.StartTime, &iv.EndTime,
		&iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return nil, err
	}
	iv.Status = models.InterviewStatus(status)
	return &iv, nil
}

func (s *PostgresStore) GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	return getInterview(ctx, s.pool, id, false)
}

func getInterview(ctx context.Context, q querier, id uuid.UUID, lock bool) (*models.Interview, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	iv, err := scanInterview(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

func (s *PostgresStore) ListInterviews(ctx context.Context, filter InterviewFilter) ([]*models.Interview, int, error) {
	w := newWhere()
	w.eqUUID("seeker_id", filter.SeekerID)
	w.eqUUID("employer_id", filter.EmployerID)
	w.eqUUID("application_id", filter.ApplicationID)
	if len(filter.Statuses) > 0 {
		w.add("status = ANY($%d)", interviewStatusStrings(filter.Statuses))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM interviews"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count interviews: %w", err)
	}

	limit, offset := NormalizePage(filter.Page, filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM interviews%s ORDER BY start_time ASC, id LIMIT $%d OFFSET $%d`,
		interviewColumns, w.sql(), len(w.args)+1, len(w.args)+2)

	rows, err := s.pool.Query(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	ivs := []*models.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan interview: %w", err)
		}
		ivs = append(ivs, iv)
	}
	return ivs, total, rows.Err()
}

func (s *PostgresStore) ListInterviewHistory(ctx context.Context, interviewID uuid.UUID) ([]*models.InterviewHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, interview_id, status_at_time, message, created_at
		 FROM interview_history WHERE interview_id = $1 ORDER BY created_at ASC, seq ASC`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("list interview history: %w", err)
	}
	defer rows.Close()

	entries := []*models.InterviewHistoryEntry{}
	for rows.Next() {
		var e models.InterviewHistoryEntry
		var status string
		if err := rows.Scan(&e.ID, &e.InterviewID, &status, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interview history: %w", err)
		}
		e.StatusAtTime = models.InterviewStatus(status)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- API Keys ---

func scanAPIKey(row scanner) (*models.APIKey, error) {
	var k models.APIKey
	if err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix,
		&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	return s.queryAPIKeys(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	return s.queryAPIKeys(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
}

func (s *PostgresStore) queryAPIKeys(ctx context.Context, query string, args ...any) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Transaction ---

type pgTx struct {
	q querier
}

func (t *pgTx) LockApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	a, err := scanApplication(t.q.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock application: %w", err)
	}
	return a, nil
}

func (t *pgTx) LockApplicant(ctx context.Context, jobID, seekerID uuid.UUID) error {
	_, err := t.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, jobID.String()+":"+seekerID.String())
	if err != nil {
		return fmt.Errorf("lock applicant: %w", err)
	}
	return nil
}

func (t *pgTx) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return getJob(ctx, t.q, id)
}

func (t *pgTx) FindActiveApplication(ctx context.Context, jobID, seekerID uuid.UUID) (*models.Application, error) {
	a, err := scanApplication(t.q.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE job_id = $1 AND seeker_id = $2 AND status NOT IN ('withdrawn', 'rejected')
		 LIMIT 1`, jobID, seekerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active application: %w", err)
	}
	return a, nil
}

func (t *pgTx) CreateApplication(ctx context.Context, a *models.Application) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.JobID, a.SeekerID, a.EmployerID, string(a.Status), a.MatchScore,
		a.CoverLetter, a.CVReference, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus, updatedAt time.Time) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) GetInterview(ctx context.Context, id uuid.UUID) (*models.Interview, error) {
	return getInterview(ctx, t.q, id, true)
}

func (t *pgTx) GetOpenInterview(ctx context.Context, applicationID uuid.UUID) (*models.Interview, error) {
	iv, err := scanInterview(t.q.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews
		 WHERE application_id = $1 AND status = ANY($2)
		 LIMIT 1 FOR UPDATE`, applicationID, interviewStatusStrings(models.OpenInterviewStatuses)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get open interview: %w", err)
	}
	return iv, nil
}

func (t *pgTx) CreateInterview(ctx context.Context, iv *models.Interview) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO interviews (`+interviewColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		iv.ID, iv.ApplicationID, iv.EmployerID, iv.SeekerID, string(iv.Status),
		iv.Title, iv.Description, iv.Location, iv.StartTime, iv.EndTime, iv.CreatedAt, iv.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create interview: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateInterview(ctx context.Context, iv *models.Interview) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE interviews SET status = $2, title = $3, description = $4, location = $5,
		   start_time = $6, end_time = $7, updated_at = $8
		 WHERE id = $1`,
		iv.ID, string(iv.Status), iv.Title, iv.Description, iv.Location,
		iv.StartTime, iv.EndTime, iv.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) AppendHistory(ctx context.Context, e *models.InterviewHistoryEntry) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO interview_history (id, interview_id, status_at_time, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.InterviewID, string(e.StatusAtTime), e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append interview history: %w", err)
	}
	return nil
}

// --- helpers ---

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conditions []string
	args       []any
}

func newWhere() *where {
	return &where{}
}

// add appends a condition; format must contain exactly one %d for the
// argument position.
func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *where) eqUUID(column string, id uuid.UUID) {
	if id != uuid.Nil {
		w.add(column+" = $%d", id)
	}
}

func (w *where) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func interviewStatusStrings(statuses []models.InterviewStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
