package store

import (
	"context"
	"sync"
	"time"

	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// MemoryJobStore is an in-memory JobStore for tests and broker-less
// development. Duplicate detection matches the Postgres store's unique
// constraint on (source_id, url).
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.StoredJob
	seen map[string]string // (source_id, url) -> job id
	now  func() time.Time
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]*models.StoredJob),
		seen: make(map[string]string),
		now:  time.Now,
	}
}

func identityKey(listing models.JobListing) string {
	return listing.SourceID + "\x00" + listing.URL
}

func (s *MemoryJobStore) Save(_ context.Context, listing models.JobListing, relevance string) (*models.StoredJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(listing)
	if _, dup := s.seen[key]; dup {
		return nil, ErrDuplicateJob
	}

	now := s.now()
	job := &models.StoredJob{
		ID:        utils.GenerateRequestID(),
		Listing:   listing,
		Relevance: relevance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.jobs[job.ID] = job
	s.seen[key] = job.ID

	copied := *job
	return &copied, nil
}

func (s *MemoryJobStore) GetAll(_ context.Context) ([]models.StoredJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]models.StoredJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func (s *MemoryJobStore) GetByID(_ context.Context, id string) (*models.StoredJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *MemoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.seen, identityKey(job.Listing))
	delete(s.jobs, id)
	return nil
}

func (s *MemoryJobStore) GetLatestUpdatedAt(_ context.Context) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *time.Time
	for _, job := range s.jobs {
		if latest == nil || job.UpdatedAt.After(*latest) {
			t := job.UpdatedAt
			latest = &t
		}
	}
	return latest, nil
}

func (s *MemoryJobStore) UpdateSkills(_ context.Context, id string, skills []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Skills = append([]string(nil), skills...)
	job.UpdatedAt = s.now()
	return nil
}

// MemoryCVStore is an in-memory CVStore for tests.
type MemoryCVStore struct {
	mu  sync.RWMutex
	cvs map[string]string
}

// NewMemoryCVStore creates an empty in-memory CV store.
func NewMemoryCVStore() *MemoryCVStore {
	return &MemoryCVStore{cvs: make(map[string]string)}
}

func (s *MemoryCVStore) Save(_ context.Context, userID, sanitizedCV string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cvs[userID] = sanitizedCV
	return nil
}

func (s *MemoryCVStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cv, ok := s.cvs[userID]
	if !ok {
		return "", ErrNotFound
	}
	return cv, nil
}
