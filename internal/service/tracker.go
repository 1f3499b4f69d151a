package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/driveindex/internal/models"
)

// Persistence debounce: counter increments are flushed to the store at
// most this often, or whenever this many files accumulate. Status and
// position changes always persist immediately.
const (
	persistInterval = 5 * time.Second
	persistEvery    = 10
)

// Run is the in-memory state of one indexing run. All mutation goes
// through the Tracker; parallel walker branches never touch fields
// directly.
type Run struct {
	ID           string
	UserID       string
	Provider     models.ProviderType
	RootFolderID string
	Options      models.IndexingOptions

	mu                sync.RWMutex
	status            models.RunStatus
	totalFiles        int
	processedFiles    int
	depth             int
	currentFolderID   string
	lastProcessedFile string
	foldersSeen       int
	runErr            *models.RunError
	createdAt         time.Time
	updatedAt         time.Time

	// Unflushed counter deltas (debounced store writes)
	pendingProcessed int
	pendingTotal     int
	lastPersist      time.Time
}

// Status returns the run's current status.
func (r *Run) Status() models.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Stopped reports whether a stop has been requested or applied. The
// walker polls this between folder-listing calls.
func (r *Run) Stopped() bool {
	return r.Status() == models.RunStatusStopped
}

// Counts returns the processed/total file counters.
func (r *Run) Counts() (processed, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.processedFiles, r.totalFiles
}

// FoldersSeen returns the number of folders listed so far.
func (r *Run) FoldersSeen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.foldersSeen
}

// Snapshot returns a thread-safe copy of run state as a record.
func (r *Run) Snapshot() models.IndexingRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.IndexingRun{
		UserID:            r.UserID,
		Provider:          r.Provider,
		RootFolderID:      r.RootFolderID,
		CurrentFolderID:   r.currentFolderID,
		Status:            r.status,
		TotalFiles:        r.totalFiles,
		ProcessedFiles:    r.processedFiles,
		Depth:             r.depth,
		LastProcessedFile: r.lastProcessedFile,
		Error:             r.runErr,
		Settings:          r.Options.Settings(),
		CreatedAt:         r.createdAt,
		UpdatedAt:         r.updatedAt,
	}
}

// Tracker records indexing run progress durably. It keeps the
// authoritative state in memory during a run and writes through to the
// store (debounced for counters, immediate for status). A nil store is
// tolerated for unit tests.
type Tracker struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	store RunStore
}

// NewTracker creates a tracker over the given store.
func NewTracker(store RunStore) *Tracker {
	return &Tracker{
		runs:  make(map[string]*Run),
		store: store,
	}
}

// Create inserts a new run with status initializing and zero counters.
func (t *Tracker) Create(ctx context.Context, userID string, provider models.ProviderType, rootFolderID string, opts models.IndexingOptions) (*Run, error) {
	now := time.Now()
	run := &Run{
		ID:           uuid.New().String()[:8], // short ID for convenience
		UserID:       userID,
		Provider:     provider,
		RootFolderID: rootFolderID,
		Options:      opts,
		status:       models.RunStatusInitializing,
		createdAt:    now,
		updatedAt:    now,
		lastPersist:  now,
	}

	if t.store != nil {
		if err := t.store.CreateRun(ctx, run.ID, run.Snapshot()); err != nil {
			return nil, err
		}
	}

	t.mu.Lock()
	t.runs[run.ID] = run
	t.mu.Unlock()

	slog.Info("run created", "run_id", run.ID, "user_id", userID, "provider", provider, "folder", rootFolderID)
	return run, nil
}

// Get returns the in-memory run, or nil if this process isn't tracking
// it.
func (t *Tracker) Get(id string) *Run {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.runs[id]
}

// GetRecord returns the run record by ID, falling back to the store for
// runs finished before a restart. Returns nil if not found anywhere.
func (t *Tracker) GetRecord(ctx context.Context, id string) (*models.IndexingRun, error) {
	if run := t.Get(id); run != nil {
		rec := run.Snapshot()
		return &rec, nil
	}
	if t.store == nil {
		return nil, nil
	}
	return t.store.GetRun(ctx, id)
}

// ListRecords returns run records, most recent first.
func (t *Tracker) ListRecords(ctx context.Context, userID string, limit int) ([]models.IndexingRun, error) {
	if t.store != nil {
		return t.store.ListRuns(ctx, userID, limit)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	records := make([]models.IndexingRun, 0, len(t.runs))
	for _, run := range t.runs {
		if userID == "" || run.UserID == userID {
			records = append(records, run.Snapshot())
		}
	}
	return records, nil
}

// UpdateStatus attempts a status transition. Backward transitions are
// rejected with a warning and a false return, never an error: a
// bookkeeping race must not abort traversal. The store write carries
// the same guard so a racing writer cannot sneak a backward move in.
func (t *Tracker) UpdateStatus(ctx context.Context, run *Run, status models.RunStatus, runErr *models.RunError) bool {
	run.mu.Lock()
	if !run.status.CanTransitionTo(status) {
		current := run.status
		run.mu.Unlock()
		slog.Warn("ignoring invalid status transition", "run_id", run.ID, "from", current, "to", status)
		return false
	}
	allowedFrom := []models.RunStatus{run.status}
	run.status = status
	if runErr != nil {
		run.runErr = runErr
	}
	run.updatedAt = time.Now()
	pendingProcessed, pendingTotal := run.pendingProcessed, run.pendingTotal
	run.pendingProcessed, run.pendingTotal = 0, 0
	run.mu.Unlock()

	if t.store != nil {
		// Flush debounced counters before terminal transitions so the
		// record's counts are final.
		if pendingProcessed > 0 || pendingTotal > 0 {
			if err := t.store.AddRunProgress(ctx, run.ID, pendingProcessed, pendingTotal, ""); err != nil {
				slog.Warn("failed to flush run progress", "run_id", run.ID, "error", err)
			}
		}
		applied, err := t.store.UpdateRunStatus(ctx, run.ID, status, allowedFrom, runErr)
		if err != nil {
			slog.Warn("failed to persist run status", "run_id", run.ID, "status", status, "error", err)
		} else if !applied {
			slog.Warn("store rejected status transition", "run_id", run.ID, "to", status)
		}
	}
	return true
}

// AddProcessed increments processedFiles and records the file name for
// UI feedback. Store writes are debounced.
func (t *Tracker) AddProcessed(ctx context.Context, run *Run, delta int, lastFile string) {
	run.mu.Lock()
	run.processedFiles += delta
	run.pendingProcessed += delta
	if lastFile != "" {
		run.lastProcessedFile = lastFile
	}
	run.updatedAt = time.Now()
	flush, processed, total := run.takePendingLocked()
	run.mu.Unlock()

	t.persistProgress(ctx, run, flush, processed, total, lastFile)
}

// AddTotal revises the file total upward as more of the tree is
// discovered. totalFiles is an estimate until traversal completes.
func (t *Tracker) AddTotal(ctx context.Context, run *Run, delta int) {
	run.mu.Lock()
	run.totalFiles += delta
	run.pendingTotal += delta
	run.foldersSeen++
	run.updatedAt = time.Now()
	flush, processed, total := run.takePendingLocked()
	run.mu.Unlock()

	t.persistProgress(ctx, run, flush, processed, total, "")
}

// takePendingLocked decides whether debounced counters should be
// flushed, and claims them if so. Caller holds run.mu.
func (r *Run) takePendingLocked() (flush bool, processed, total int) {
	due := r.pendingProcessed+r.pendingTotal >= persistEvery ||
		time.Since(r.lastPersist) > persistInterval
	if !due {
		return false, 0, 0
	}
	processed, total = r.pendingProcessed, r.pendingTotal
	r.pendingProcessed, r.pendingTotal = 0, 0
	r.lastPersist = time.Now()
	return true, processed, total
}

func (t *Tracker) persistProgress(ctx context.Context, run *Run, flush bool, processed, total int, lastFile string) {
	if !flush || t.store == nil {
		return
	}
	if err := t.store.AddRunProgress(ctx, run.ID, processed, total, lastFile); err != nil {
		slog.Warn("failed to persist run progress", "run_id", run.ID, "error", err)
	}
}

// SetPosition records the folder the walker is about to descend into.
// Last writer wins across parallel branches; it is a UI hint.
func (t *Tracker) SetPosition(ctx context.Context, run *Run, folderID string, depth int) {
	run.mu.Lock()
	run.currentFolderID = folderID
	run.depth = depth
	run.updatedAt = time.Now()
	run.mu.Unlock()

	if t.store != nil {
		fields := map[string]any{
			"current_folder_id": folderID,
			"depth":             depth,
		}
		if err := t.store.UpdateRunFields(ctx, run.ID, fields); err != nil {
			slog.Warn("failed to persist run position", "run_id", run.ID, "error", err)
		}
	}
}

// Annotate records a non-fatal error against the run without changing
// its status. Used for per-file and per-branch failures.
func (t *Tracker) Annotate(ctx context.Context, run *Run, runErr models.RunError) {
	run.mu.Lock()
	run.runErr = &runErr
	run.updatedAt = time.Now()
	run.mu.Unlock()

	if t.store != nil {
		if err := t.store.UpdateRunFields(ctx, run.ID, map[string]any{"error": runErr}); err != nil {
			slog.Warn("failed to persist run annotation", "run_id", run.ID, "error", err)
		}
	}
}

// SetRunning marks the run as running.
func (t *Tracker) SetRunning(ctx context.Context, run *Run) {
	t.UpdateStatus(ctx, run, models.RunStatusRunning, nil)
}

// Complete marks the run as completed.
func (t *Tracker) Complete(ctx context.Context, run *Run) {
	if t.UpdateStatus(ctx, run, models.RunStatusCompleted, nil) {
		processed, total := run.Counts()
		slog.Info("run completed", "run_id", run.ID, "processed", processed, "total", total)
	}
}

// Fail marks the run as failed with a structured error.
func (t *Tracker) Fail(ctx context.Context, run *Run, runErr models.RunError) {
	if t.UpdateStatus(ctx, run, models.RunStatusError, &runErr) {
		slog.Error("run failed", "run_id", run.ID, "code", runErr.Code, "message", runErr.Message)
	}
}

// Stop marks the run as stopped. A stopped run is a valid terminal
// state distinct from error.
func (t *Tracker) Stop(ctx context.Context, run *Run) bool {
	ok := t.UpdateStatus(ctx, run, models.RunStatusStopped, nil)
	if ok {
		slog.Info("run stopped", "run_id", run.ID)
	}
	return ok
}
