package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-agent-core/pkg/models"
)

func sampleListing(sourceID, url string) models.JobListing {
	return models.JobListing{
		SourceID:       sourceID,
		Title:          "Backend Engineer",
		Company:        "Initech",
		Salary:         90000,
		Location:       "Remote",
		EmploymentType: "full-time",
		PostedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		URL:            url,
		Description:    "Go services",
	}
}

func TestMemoryJobStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	saved, err := s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "matches Go backend profile")
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := s.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", got.Listing.Title)
	assert.Equal(t, "matches Go backend profile", got.Relevance)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryJobStoreDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	_, err := s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "")
	require.NoError(t, err)

	_, err = s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "")
	assert.ErrorIs(t, err, ErrDuplicateJob)

	// Same source, different URL is a distinct listing
	_, err = s.Save(ctx, sampleListing("src-1", "https://example.com/2"), "")
	assert.NoError(t, err)
}

func TestMemoryJobStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	saved, err := s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, saved.ID))
	assert.ErrorIs(t, s.Delete(ctx, saved.ID), ErrNotFound)

	_, err = s.GetByID(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting frees the identity for re-saving
	_, err = s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "")
	assert.NoError(t, err)
}

func TestMemoryJobStoreLatestUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	latest, err := s.GetLatestUpdatedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	current := base
	s.now = func() time.Time {
		current = current.Add(time.Hour)
		return current
	}

	_, err = s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "")
	require.NoError(t, err)
	_, err = s.Save(ctx, sampleListing("src-2", "https://example.com/2"), "")
	require.NoError(t, err)

	latest, err = s.GetLatestUpdatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, base.Add(2*time.Hour), *latest)
}

func TestMemoryJobStoreUpdateSkills(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	saved, err := s.Save(ctx, sampleListing("src-1", "https://example.com/1"), "")
	require.NoError(t, err)

	require.NoError(t, s.UpdateSkills(ctx, saved.ID, []string{"Go", "PostgreSQL"}))

	got, err := s.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, got.Skills)

	assert.ErrorIs(t, s.UpdateSkills(ctx, "missing", nil), ErrNotFound)
}

func TestRedisCVStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisCVStoreFromClient(client)
	ctx := context.Background()

	_, err := s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "user-1", "sanitized profile v1"))

	cv, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sanitized profile v1", cv)

	// Upload replaces the previous CV
	require.NoError(t, s.Save(ctx, "user-1", "sanitized profile v2"))
	cv, err = s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "sanitized profile v2", cv)

	// Keys are namespaced per user
	assert.True(t, mr.Exists("cv:user:user-1"))
	_, err = s.Get(ctx, "user-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCVStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCVStore()

	_, err := s.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "user-1", "profile"))
	cv, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "profile", cv)
}
