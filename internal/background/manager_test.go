package background

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-agent-core/internal/config"
	"job-agent-core/pkg/models"
)

type fakeExtractor struct {
	skills []string
	err    error
}

func (f *fakeExtractor) ExtractSkills(_ context.Context, _ models.JobListing) ([]string, error) {
	return f.skills, f.err
}

type recordingWriter struct {
	mu      sync.Mutex
	updates map[string][]string
	err     error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{updates: make(map[string][]string)}
}

func (w *recordingWriter) UpdateSkills(_ context.Context, id string, skills []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.updates[id] = skills
	return nil
}

func (w *recordingWriter) get(id string) ([]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	skills, ok := w.updates[id]
	return skills, ok
}

func sampleStoredJob() models.StoredJob {
	return models.StoredJob{
		ID: "job-1",
		Listing: models.JobListing{
			Title:       "Backend Engineer",
			Company:     "Initech",
			Description: "Go services on Kubernetes",
		},
	}
}

func TestEnrichSkillsTaskSuccess(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := newRecordingWriter()
	tm := NewTaskManager(cfg, &fakeExtractor{skills: []string{"Go", "Kubernetes"}}, writer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tm.Start(ctx))
	defer tm.Stop(context.Background())

	require.NoError(t, tm.SubmitEnrichSkillsTask(ctx, "proc-1", sampleStoredJob()))

	require.Eventually(t, func() bool {
		status, err := tm.GetTaskStatus(ctx, "proc-1")
		return err == nil && status == TaskStatusSuccess
	}, 2*time.Second, 10*time.Millisecond)

	skills, ok := writer.get("job-1")
	require.True(t, ok)
	assert.Equal(t, []string{"Go", "Kubernetes"}, skills)

	result, err := tm.GetTaskResult(ctx, "proc-1")
	require.NoError(t, err)
	data, ok := result.Data.(*EnrichSkillsTaskData)
	require.True(t, ok)
	assert.Equal(t, "job-1", data.JobID)
	assert.NotNil(t, result.CompletedAt)
}

func TestEnrichSkillsTaskFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := newRecordingWriter()
	tm := NewTaskManager(cfg, &fakeExtractor{err: fmt.Errorf("provider unavailable")}, writer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tm.Start(ctx))
	defer tm.Stop(context.Background())

	require.NoError(t, tm.SubmitEnrichSkillsTask(ctx, "proc-1", sampleStoredJob()))

	require.Eventually(t, func() bool {
		status, err := tm.GetTaskStatus(ctx, "proc-1")
		return err == nil && status == TaskStatusFailure
	}, 2*time.Second, 10*time.Millisecond)

	result, err := tm.GetTaskResult(ctx, "proc-1")
	require.NoError(t, err)
	assert.Contains(t, result.Error, "provider unavailable")

	_, ok := writer.get("job-1")
	assert.False(t, ok)
}

func TestSubmitRequiresRunningManager(t *testing.T) {
	cfg := config.DefaultConfig()
	tm := NewTaskManager(cfg, &fakeExtractor{}, newRecordingWriter())

	err := tm.SubmitEnrichSkillsTask(context.Background(), "proc-1", sampleStoredJob())
	assert.Error(t, err)
}

func TestTaskStoreCleanup(t *testing.T) {
	s := NewInMemoryTaskStore()
	ctx := context.Background()

	old := &TaskResult{ProcessID: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &TaskResult{ProcessID: "fresh", CreatedAt: time.Now()}
	require.NoError(t, s.Store(ctx, old))
	require.NoError(t, s.Store(ctx, fresh))

	require.NoError(t, s.Cleanup(ctx, 24*time.Hour))

	_, err := s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.Get(ctx, "fresh")
	assert.NoError(t, err)
}
