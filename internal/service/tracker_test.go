package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/driveindex/internal/models"
)

func TestTrackerCreatePersistsInitializingRun(t *testing.T) {
	store := newMemRunStore()
	tracker := NewTracker(store)

	run, err := tracker.Create(context.Background(), "u1", models.ProviderGoogle, "root", models.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	stored := store.stored(run.ID)
	assert.Equal(t, models.RunStatusInitializing, stored.Status)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "root", stored.RootFolderID)
	assert.Equal(t, 0, stored.ProcessedFiles)

	assert.Same(t, run, tracker.Get(run.ID))
}

func TestTrackerStatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newMemRunStore()
	tracker := NewTracker(store)
	run, _ := tracker.Create(ctx, "u1", models.ProviderGoogle, "root", models.DefaultOptions())

	assert.True(t, tracker.UpdateStatus(ctx, run, models.RunStatusRunning, nil))
	tracker.Complete(ctx, run)
	assert.Equal(t, models.RunStatusCompleted, run.Status())

	// Terminal is final: late transitions are rejected, not applied.
	assert.False(t, tracker.UpdateStatus(ctx, run, models.RunStatusRunning, nil))
	assert.Equal(t, models.RunStatusCompleted, run.Status())
	assert.False(t, tracker.Stop(ctx, run))
	assert.Equal(t, models.RunStatusCompleted, run.Status())
	assert.False(t, tracker.UpdateStatus(ctx, run, models.RunStatusError, &models.RunError{Code: "late"}))

	stored := store.stored(run.ID)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
	assert.Nil(t, stored.Error)
}

func TestTrackerBackwardTransitionFromRunning(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(nil)
	run, _ := tracker.Create(ctx, "u1", models.ProviderGoogle, "root", models.DefaultOptions())

	tracker.SetRunning(ctx, run)
	assert.False(t, tracker.UpdateStatus(ctx, run, models.RunStatusInitializing, nil))
	assert.Equal(t, models.RunStatusRunning, run.Status())
}

func TestTrackerDebouncesProgressWrites(t *testing.T) {
	ctx := context.Background()
	store := newMemRunStore()
	tracker := NewTracker(store)
	run, _ := tracker.Create(ctx, "u1", models.ProviderGoogle, "root", models.DefaultOptions())
	tracker.SetRunning(ctx, run)

	// Below the flush threshold: memory moves, the store does not.
	for i := 0; i < 4; i++ {
		tracker.AddProcessed(ctx, run, 1, "file.txt")
	}
	processed, _ := run.Counts()
	assert.Equal(t, 4, processed)
	assert.Equal(t, 0, store.stored(run.ID).ProcessedFiles)

	// Crossing the threshold flushes the accumulated deltas.
	tracker.AddTotal(ctx, run, 10)
	stored := store.stored(run.ID)
	assert.Equal(t, 4, stored.ProcessedFiles)
	assert.Equal(t, 10, stored.TotalFiles)
}

func TestTrackerFlushesPendingOnTerminal(t *testing.T) {
	ctx := context.Background()
	store := newMemRunStore()
	tracker := NewTracker(store)
	run, _ := tracker.Create(ctx, "u1", models.ProviderGoogle, "root", models.DefaultOptions())
	tracker.SetRunning(ctx, run)

	tracker.AddProcessed(ctx, run, 2, "last.txt")
	assert.Equal(t, 0, store.stored(run.ID).ProcessedFiles, "still debounced")

	tracker.Complete(ctx, run)
	stored := store.stored(run.ID)
	assert.Equal(t, 2, stored.ProcessedFiles, "terminal transition flushes counters")
	assert.Equal(t, models.RunStatusCompleted, stored.Status)
}

func TestTrackerGetRecordFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := newMemRunStore()
	require.NoError(t, store.CreateRun(ctx, "old-run", models.IndexingRun{
		UserID: "u1",
		Status: models.RunStatusCompleted,
	}))

	tracker := NewTracker(store)
	record, err := tracker.GetRecord(ctx, "old-run")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.RunStatusCompleted, record.Status)

	record, err = tracker.GetRecord(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestTrackerAnnotateKeepsStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemRunStore()
	tracker := NewTracker(store)
	run, _ := tracker.Create(ctx, "u1", models.ProviderGoogle, "root", models.DefaultOptions())
	tracker.SetRunning(ctx, run)

	tracker.Annotate(ctx, run, models.RunError{Code: "transient_error", Message: "retry later", Details: "folder F"})

	assert.Equal(t, models.RunStatusRunning, run.Status())
	snap := run.Snapshot()
	require.NotNil(t, snap.Error)
	assert.Equal(t, "transient_error", snap.Error.Code)
	require.NotNil(t, store.stored(run.ID).Error)
}
