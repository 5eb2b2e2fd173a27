package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/fnship/internal/core/domain"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func testRun(id string, status domain.RunStatus, startedAt time.Time) *domain.RunRecord {
	steps := []domain.Step{
		{ID: "api/build", Service: "api", Phase: domain.PhaseBuild, Name: "build image", Status: domain.StepSuccess, DurationMS: 1200},
		{ID: "api/push", Service: "api", Phase: domain.PhasePush, Name: "push image", Status: domain.StepSuccess, Message: "cr.example.com/team/api:v1", DurationMS: 800},
	}
	return &domain.RunRecord{
		ID:         id,
		Status:     status,
		StartedAt:  startedAt.UTC(),
		FinishedAt: startedAt.UTC().Add(5 * time.Second),
		Steps:      steps,
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestSaveAndGetRun(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", domain.RunDone, time.Now())
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunDone, got.Status)
	assert.Empty(t, got.ErrorMessage)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "api/build", got.Steps[0].ID)
	assert.Equal(t, "api/push", got.Steps[1].ID)
	assert.Equal(t, int64(800), got.Steps[1].DurationMS)
	assert.True(t, got.FinishedAt.After(got.StartedAt))
}

func TestSaveRunPreservesErrorMessage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-err", domain.RunError, time.Now())
	run.ErrorMessage = "docker exited with code 1: denied"
	run.Steps[1].Status = domain.StepError
	run.Steps[1].Message = "denied"
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-err")
	require.NoError(t, err)
	assert.Equal(t, domain.RunError, got.Status)
	assert.Contains(t, got.ErrorMessage, "denied")
	assert.Equal(t, domain.StepError, got.Steps[1].Status)
}

func TestSaveRunDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-dup", domain.RunDone, time.Now())
	require.NoError(t, store.SaveRun(ctx, run))

	err := store.SaveRun(ctx, run)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, testRun("run-old", domain.RunDone, base)))
	require.NoError(t, store.SaveRun(ctx, testRun("run-new", domain.RunError, base.Add(time.Hour))))

	runs, err := store.ListRuns(ctx, DefaultListOptions())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)
	// Listing omits steps; they are fetched per run.
	assert.Empty(t, runs[0].Steps)
}

func TestListRunsPagination(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := testRun(string(rune('a'+i)), domain.RunDone, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.SaveRun(ctx, run))
	}

	page, err := store.ListRuns(ctx, ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)
	assert.Equal(t, "c", page[1].ID)
}

func TestDeleteRunCascadesSteps(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-del", domain.RunDone, time.Now())))
	require.NoError(t, store.DeleteRun(ctx, "run-del"))

	_, err := store.GetRun(ctx, "run-del")
	assert.True(t, errors.Is(err, ErrNotFound))

	steps, err := store.GetRunSteps(ctx, "run-del")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestDeleteRunNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.DeleteRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListOptionsNormalize(t *testing.T) {
	opts := ListOptions{Limit: -1, Offset: -5}.Normalize()
	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, 0, opts.Offset)

	opts = ListOptions{Limit: 9000}.Normalize()
	assert.Equal(t, 500, opts.Limit)
}
