package store

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// MemoryStore implements Store with a process-local map. Job state lives and
// dies with the process; use the sqlite or postgres driver when webhook
// delivery and polling must survive restarts or span instances.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewMemory creates an empty in-memory job store.
func NewMemory() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.JobID]; ok {
		return ErrDuplicateJob
	}

	j := cloneJob(job)
	if j.Status == "" {
		j.Status = model.JobStatusPending
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if j.EnrichedContacts == nil {
		j.EnrichedContacts = []model.Contact{}
	}
	s.jobs[job.JobID] = j
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(j), nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, jobID string, contacts []model.Contact, status model.JobStatus) error {
	if status == "" {
		status = model.JobStatusCompleted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	if contacts == nil {
		contacts = []model.Contact{}
	}
	j.EnrichedContacts = append([]model.Contact(nil), contacts...)
	j.Status = status
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, j := range s.jobs {
		if j.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// cloneJob copies a job so callers never share the stored record.
func cloneJob(j *model.Job) *model.Job {
	c := *j
	c.ContactIDs = append([]string(nil), j.ContactIDs...)
	c.EnrichedContacts = append([]model.Contact(nil), j.EnrichedContacts...)
	if c.EnrichedContacts == nil {
		c.EnrichedContacts = []model.Contact{}
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
