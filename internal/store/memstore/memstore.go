// Package memstore is an in-process implementation of store.Store. It backs
// local development without PostgreSQL and the pipeline tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/pkg/models"
)

// Store keeps every table in maps guarded by one RWMutex. InTx holds the write
// lock for the whole transaction, which serializes all transactions; failed
// transactions are reverted from an undo log.
type Store struct {
	mu         sync.RWMutex
	jobs       map[uuid.UUID]models.Job
	apps       map[uuid.UUID]models.Application
	interviews map[uuid.UUID]models.Interview
	history    map[uuid.UUID][]models.InterviewHistoryEntry
	keys       map[uuid.UUID]models.APIKey

	faults map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		jobs:       make(map[uuid.UUID]models.Job),
		apps:       make(map[uuid.UUID]models.Application),
		interviews: make(map[uuid.UUID]models.Interview),
		history:    make(map[uuid.UUID][]models.InterviewHistoryEntry),
		keys:       make(map[uuid.UUID]models.APIKey),
		faults:     make(map[string]error),
	}
}

// FailOn makes the named Tx method (e.g. "AppendHistory") return err until
// cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// --- Jobs ---

func (s *Store) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return store.ErrDuplicateKey
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getJob(id)
}

func (s *Store) getJob(id uuid.UUID) (*models.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

// --- Applications ---

func (s *Store) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) ListApplications(_ context.Context, f store.ApplicationFilter) ([]*models.Application, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Application
	for _, a := range s.apps {
		a := a
		if !matchUUID(f.SeekerID, a.SeekerID) || !matchUUID(f.EmployerID, a.EmployerID) ||
			!matchUUID(f.JobID, a.JobID) || !containsStatus(f.Statuses, a.Status) {
			continue
		}
		matched = append(matched, &a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, f.Page, f.Limit), len(matched), nil
}

// --- Interviews ---

func (s *Store) GetInterview(_ context.Context, id uuid.UUID) (*models.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.interviews[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &iv, nil
}

func (s *Store) ListInterviews(_ context.Context, f store.InterviewFilter) ([]*models.Interview, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Interview
	for _, iv := range s.interviews {
		iv := iv
		if !matchUUID(f.SeekerID, iv.SeekerID) || !matchUUID(f.EmployerID, iv.EmployerID) ||
			!matchUUID(f.ApplicationID, iv.ApplicationID) || !containsStatus(f.Statuses, iv.Status) {
			continue
		}
		matched = append(matched, &iv)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartTime.Equal(matched[j].StartTime) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].StartTime.Before(matched[j].StartTime)
	})
	return paginate(matched, f.Page, f.Limit), len(matched), nil
}

// ListInterviewHistory returns entries in append order, which is also
// created_at order because entries are stamped at append time.
func (s *Store) ListInterviewHistory(_ context.Context, interviewID uuid.UUID) ([]*models.InterviewHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[interviewID]
	out := make([]*models.InterviewHistoryEntry, len(entries))
	for i := range entries {
		e := entries[i]
		out[i] = &e
	}
	return out, nil
}

// --- API Keys ---

func (s *Store) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := []*models.APIKey{}
	for _, k := range s.keys {
		k := k
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			keys = append(keys, &k)
		}
	}
	return keys, nil
}

func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	k.UpdatedAt = now
	s.keys[id] = k
	return nil
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; ok {
		return store.ErrDuplicateKey
	}
	for _, k := range s.keys {
		if k.Name == key.Name && k.DeletedAt == nil {
			return store.ErrDuplicateKey
		}
	}
	s.keys[key.ID] = *key
	return nil
}

func (s *Store) ListAPIKeys(_ context.Context) ([]*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := []*models.APIKey{}
	for _, k := range s.keys {
		k := k
		if k.DeletedAt == nil {
			keys = append(keys, &k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) RevokeAPIKey(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok || k.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	k.DeletedAt = &now
	k.UpdatedAt = now
	s.keys[id] = k
	return nil
}

// --- Transaction ---

// memTx runs with s.mu write-locked.
type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) fault(method string) error {
	if err, ok := t.s.faults[method]; ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (t *memTx) LockApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	if err := t.fault("LockApplication"); err != nil {
		return nil, err
	}
	a, ok := t.s.apps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) LockApplicant(_ context.Context, _, _ uuid.UUID) error {
	return t.fault("LockApplicant")
}

func (t *memTx) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	return t.s.getJob(id)
}

func (t *memTx) FindActiveApplication(_ context.Context, jobID, seekerID uuid.UUID) (*models.Application, error) {
	for _, a := range t.s.apps {
		if a.JobID == jobID && a.SeekerID == seekerID &&
			a.Status != models.ApplicationWithdrawn && a.Status != models.ApplicationRejected {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) CreateApplication(_ context.Context, a *models.Application) error {
	if err := t.fault("CreateApplication"); err != nil {
		return err
	}
	if _, ok := t.s.apps[a.ID]; ok {
		return store.ErrDuplicateKey
	}
	t.s.apps[a.ID] = *a
	id := a.ID
	t.undo = append(t.undo, func() { delete(t.s.apps, id) })
	return nil
}

func (t *memTx) UpdateApplicationStatus(_ context.Context, id uuid.UUID, status models.ApplicationStatus, updatedAt time.Time) error {
	if err := t.fault("UpdateApplicationStatus"); err != nil {
		return err
	}
	prev, ok := t.s.apps[id]
	if !ok {
		return store.ErrNotFound
	}
	next := prev
	next.Status = status
	next.UpdatedAt = updatedAt
	t.s.apps[id] = next
	t.undo = append(t.undo, func() { t.s.apps[id] = prev })
	return nil
}

func (t *memTx) GetInterview(_ context.Context, id uuid.UUID) (*models.Interview, error) {
	iv, ok := t.s.interviews[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &iv, nil
}

func (t *memTx) GetOpenInterview(_ context.Context, applicationID uuid.UUID) (*models.Interview, error) {
	for _, iv := range t.s.interviews {
		if iv.ApplicationID == applicationID && !iv.Status.Terminal() {
			return &iv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *memTx) CreateInterview(ctx context.Context, iv *models.Interview) error {
	if err := t.fault("CreateInterview"); err != nil {
		return err
	}
	if _, ok := t.s.interviews[iv.ID]; ok {
		return store.ErrDuplicateKey
	}
	if _, err := t.GetOpenInterview(ctx, iv.ApplicationID); err == nil && !iv.Status.Terminal() {
		return store.ErrDuplicateKey
	}
	t.s.interviews[iv.ID] = *iv
	id := iv.ID
	t.undo = append(t.undo, func() { delete(t.s.interviews, id) })
	return nil
}

func (t *memTx) UpdateInterview(_ context.Context, iv *models.Interview) error {
	if err := t.fault("UpdateInterview"); err != nil {
		return err
	}
	prev, ok := t.s.interviews[iv.ID]
	if !ok {
		return store.ErrNotFound
	}
	t.s.interviews[iv.ID] = *iv
	id := iv.ID
	t.undo = append(t.undo, func() { t.s.interviews[id] = prev })
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, e *models.InterviewHistoryEntry) error {
	if err := t.fault("AppendHistory"); err != nil {
		return err
	}
	if _, ok := t.s.interviews[e.InterviewID]; !ok {
		return store.ErrNotFound
	}
	id := e.InterviewID
	n := len(t.s.history[id])
	t.s.history[id] = append(t.s.history[id], *e)
	t.undo = append(t.undo, func() { t.s.history[id] = t.s.history[id][:n] })
	return nil
}

// --- helpers ---

func matchUUID(want, got uuid.UUID) bool {
	return want == uuid.Nil || want == got
}

func containsStatus[S comparable](want []S, got S) bool {
	if len(want) == 0 {
		return true
	}
	for _, s := range want {
		if s == got {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page, limit int) []T {
	limit, offset := store.NormalizePage(page, limit)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
