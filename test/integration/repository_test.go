//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyteller-admin/internal/database"
	"storyteller-admin/internal/model"
	"storyteller-admin/internal/pipeline"
	"storyteller-admin/internal/repository"
)

func newRunRepository(t *testing.T) *repository.PipelineRunRepository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, database.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	return repository.NewPipelineRunRepository(db.Pool)
}

func TestPipelineRunRepository(t *testing.T) {
	repo := newRunRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	run := pipeline.Run{
		ID:        uuid.NewString(),
		StoryID:   "story-" + uuid.NewString(),
		State:     pipeline.StatePending,
		CreatedBy: "staff-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Save(ctx, run))

	run.State = pipeline.StateFailed
	run.FailedStep = pipeline.StatePersisting
	run.Error = "Failed to update story"
	run.Orphans = []string{"https://cdn.storyteller.test/orphan.png"}
	run.UpdatedAt = now.Add(time.Second)
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateFailed, got.State)
	assert.Equal(t, run.Orphans, got.Orphans)

	orphaned, err := repo.ListWithOrphans(ctx, 50)
	require.NoError(t, err)
	found := false
	for _, r := range orphaned {
		if r.ID == run.ID {
			found = true
		}
	}
	assert.True(t, found, "failed run with orphans must be listed")

	_, err = repo.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, model.ErrRunNotFound)
}
