package store

import (
	"context"
	"errors"
	"time"

	"job-agent-core/pkg/models"
)

// ErrDuplicateJob is returned by JobStore.Save when a listing with the same
// source identity has already been persisted.
var ErrDuplicateJob = errors.New("job already exists")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// JobStore persists job listings that passed relevance evaluation.
type JobStore interface {
	// Save persists a listing with its relevance reasoning. Returns
	// ErrDuplicateJob when the listing's source identity is already stored.
	Save(ctx context.Context, listing models.JobListing, relevance string) (*models.StoredJob, error)

	GetAll(ctx context.Context) ([]models.StoredJob, error)
	GetByID(ctx context.Context, id string) (*models.StoredJob, error)
	Delete(ctx context.Context, id string) error

	// GetLatestUpdatedAt returns the most recent update timestamp across all
	// stored jobs, or nil when the store is empty.
	GetLatestUpdatedAt(ctx context.Context) (*time.Time, error)

	// UpdateSkills backfills the extracted skills for a stored job.
	UpdateSkills(ctx context.Context, id string, skills []string) error
}

// CVStore keeps the sanitized CV per user.
type CVStore interface {
	// Save stores the sanitized CV for a user, replacing any previous one.
	Save(ctx context.Context, userID, sanitizedCV string) error

	// Get returns the sanitized CV for a user, or ErrNotFound.
	Get(ctx context.Context, userID string) (string, error)
}
