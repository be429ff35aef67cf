package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

const uniqueViolationCode = "23505"

// PostgresJobStore is the pgx-backed JobStore. Listings are unique on
// (source_id, url) so re-running a pipeline never stores the same posting
// twice.
type PostgresJobStore struct {
	pool *pgxpool.Pool
}

// NewPostgresJobStore creates and verifies a pgx connection pool.
func NewPostgresJobStore(ctx context.Context, databaseURL string) (*PostgresJobStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &PostgresJobStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresJobStore) Close() {
	s.pool.Close()
}

// Save persists a listing with its relevance reasoning.
func (s *PostgresJobStore) Save(ctx context.Context, listing models.JobListing, relevance string) (*models.StoredJob, error) {
	job := models.StoredJob{
		ID:        utils.GenerateRequestID(),
		Listing:   listing,
		Relevance: relevance,
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (id, source_id, title, company, salary, location,
		                   employment_type, posted_at, url, description, relevance)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at, updated_at`,
		job.ID, listing.SourceID, listing.Title, listing.Company, listing.Salary,
		listing.Location, listing.EmploymentType, listing.PostedAt, listing.URL,
		listing.Description, relevance,
	)

	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, ErrDuplicateJob
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return &job, nil
}

// GetAll returns every stored job, newest first.
func (s *PostgresJobStore) GetAll(ctx context.Context) ([]models.StoredJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_id, title, company, salary, location, employment_type,
		        posted_at, url, description, relevance, skills, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.StoredJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	return jobs, rows.Err()
}

// GetByID returns a single stored job or ErrNotFound.
func (s *PostgresJobStore) GetByID(ctx context.Context, id string) (*models.StoredJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_id, title, company, salary, location, employment_type,
		        posted_at, url, description, relevance, skills, created_at, updated_at
		 FROM jobs
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query job: %w", err)
		}
		return nil, ErrNotFound
	}

	return scanJob(rows)
}

// Delete removes a stored job. Deleting an unknown id returns ErrNotFound.
func (s *PostgresJobStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLatestUpdatedAt returns the most recent update timestamp, nil when empty.
func (s *PostgresJobStore) GetLatestUpdatedAt(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx, `SELECT MAX(updated_at) FROM jobs`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("query latest updated_at: %w", err)
	}
	return latest, nil
}

// UpdateSkills backfills the extracted skills for a stored job.
func (s *PostgresJobStore) UpdateSkills(ctx context.Context, id string, skills []string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET skills = $2, updated_at = now() WHERE id = $1`,
		id, skills,
	)
	if err != nil {
		return fmt.Errorf("update skills: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanJob(rows pgx.Rows) (*models.StoredJob, error) {
	var job models.StoredJob
	var relevance *string
	if err := rows.Scan(
		&job.ID, &job.Listing.SourceID, &job.Listing.Title, &job.Listing.Company,
		&job.Listing.Salary, &job.Listing.Location, &job.Listing.EmploymentType,
		&job.Listing.PostedAt, &job.Listing.URL, &job.Listing.Description,
		&relevance, &job.Skills, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if relevance != nil {
		job.Relevance = *relevance
	}
	return &job, nil
}
