package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/driveindex/internal/auth"
	"github.com/raphaelgruber/driveindex/internal/drive"
	"github.com/raphaelgruber/driveindex/internal/metrics"
	"github.com/raphaelgruber/driveindex/internal/models"
)

// ListerFactory builds a listing client for a provider with the given
// page size.
type ListerFactory func(provider models.ProviderType, pageSize int) (drive.Lister, error)

// StartRequest is the orchestrator's input. A nil Options means the
// defaults, recursive traversal included.
type StartRequest struct {
	UserID   string
	FolderID string
	Provider models.ProviderType // defaults to google
	Options  *models.IndexingOptions
}

// StartResult summarizes a completed (or stopped) synchronous run.
type StartResult struct {
	RunID        string
	FolderName   string
	TotalFiles   int
	TotalFolders int
}

// runTask is the supervised handle of one background run.
type runTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator is the indexing entry point: it creates the run record,
// drives the walker and finalizes terminal status. Credential and
// store dependencies are injected, never ambient.
type Orchestrator struct {
	tracker     *Tracker
	creds       auth.CredentialProvider
	listers     ListerFactory
	docs        DocumentStore
	extractors  *ExtractorRegistry
	fetcher     ContentFetcher
	retry       drive.RetryPolicy
	concurrency int
	stats       *metrics.Collector

	mu    sync.Mutex
	tasks map[string]*runTask
}

// OrchestratorConfig wires an orchestrator's collaborators.
type OrchestratorConfig struct {
	Tracker     *Tracker
	Credentials auth.CredentialProvider
	Listers     ListerFactory
	Documents   DocumentStore
	Extractors  *ExtractorRegistry
	// Fetcher overrides content fetching. When nil, runs fetch through
	// the lister if it implements drive.Downloader.
	Fetcher ContentFetcher
	Retry       drive.RetryPolicy
	Concurrency int
	Stats       *metrics.Collector
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	listers := cfg.Listers
	if listers == nil {
		listers = func(provider models.ProviderType, pageSize int) (drive.Lister, error) {
			return drive.ForProvider(provider, drive.Options{PageSize: pageSize})
		}
	}
	return &Orchestrator{
		tracker:     cfg.Tracker,
		creds:       cfg.Credentials,
		listers:     listers,
		docs:        cfg.Documents,
		extractors:  cfg.Extractors,
		fetcher:     cfg.Fetcher,
		retry:       cfg.Retry,
		concurrency: cfg.Concurrency,
		stats:       cfg.Stats,
		tasks:       make(map[string]*runTask),
	}
}

// Stats returns the orchestrator's metrics collector (may be nil).
func (o *Orchestrator) Stats() *metrics.Collector {
	return o.stats
}

// Start runs an indexing run synchronously: the caller gets the result
// after traversal finishes. Validation and credential failures surface
// before any run record exists.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	run, lister, token, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, run, lister, token)
}

// StartAsync starts an indexing run in the background and returns the
// run ID immediately. The goroutine is supervised: panics and errors
// land in the run record, never on a caller that is long gone.
func (o *Orchestrator) StartAsync(ctx context.Context, req StartRequest) (string, error) {
	run, lister, token, err := o.prepare(ctx, req)
	if err != nil {
		return "", err
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	task := &runTask{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.tasks[run.ID] = task
	o.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("indexing goroutine panicked", "run_id", run.ID, "panic", r)
				o.tracker.Fail(context.Background(), run, models.RunError{
					Code:    "internal",
					Message: fmt.Sprintf("internal panic: %v", r),
				})
			}
			cancel()
			o.mu.Lock()
			delete(o.tasks, run.ID)
			o.mu.Unlock()
			close(task.done)
		}()

		// Terminal status lands in the run record; the HTTP caller has
		// already received its response.
		if _, err := o.execute(bgCtx, run, lister, token); err != nil {
			slog.Warn("background run finished with error", "run_id", run.ID, "error", err)
		}
	}()

	return run.ID, nil
}

// Stop requests cooperative cancellation of a run. The walker observes
// the stop between folder-listing calls and exits without treating it
// as an error. Returns whether a stop was applied.
func (o *Orchestrator) Stop(ctx context.Context, runID string) (bool, error) {
	if run := o.tracker.Get(runID); run != nil {
		// Status first, context second: the walker maps cancellation of
		// an already-stopped run back to a clean stop.
		ok := o.tracker.Stop(ctx, run)
		o.mu.Lock()
		task := o.tasks[runID]
		o.mu.Unlock()
		if task != nil {
			task.cancel()
		}
		return ok, nil
	}

	record, err := o.tracker.GetRecord(ctx, runID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, ErrRunNotFound
	}
	// Known run, but not executing in this process; nothing to stop.
	return false, nil
}

// Wait blocks until a background run's goroutine exits. Testing and
// shutdown use it; API callers poll the run record instead.
func (o *Orchestrator) Wait(runID string) {
	o.mu.Lock()
	task := o.tasks[runID]
	o.mu.Unlock()
	if task != nil {
		<-task.done
	}
}

// prepare validates the request, obtains credentials and creates the
// run record. Order matters: a missing or expired credential must fail
// fast with no run record left behind.
func (o *Orchestrator) prepare(ctx context.Context, req StartRequest) (*Run, drive.Lister, string, error) {
	if req.UserID == "" {
		return nil, nil, "", ErrMissingUser
	}
	if req.FolderID == "" {
		return nil, nil, "", ErrMissingFolder
	}
	provider := req.Provider
	if provider == "" {
		provider = models.ProviderGoogle
	}
	if !provider.Valid() {
		return nil, nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	opts := models.DefaultOptions()
	if req.Options != nil {
		opts = req.Options.Normalize()
	}

	creds, err := o.creds.AccessToken(ctx, req.UserID, provider)
	if err != nil {
		return nil, nil, "", fmt.Errorf("obtain access token: %w", err)
	}

	lister, err := o.listers(provider, opts.BatchSize)
	if err != nil {
		return nil, nil, "", err
	}

	run, err := o.tracker.Create(ctx, req.UserID, provider, req.FolderID, opts)
	if err != nil {
		return nil, nil, "", fmt.Errorf("create run: %w", err)
	}
	return run, lister, creds.AccessToken, nil
}

// execute drives one run to a terminal state.
func (o *Orchestrator) execute(ctx context.Context, run *Run, lister drive.Lister, accessToken string) (*StartResult, error) {
	o.tracker.SetRunning(ctx, run)

	var rootMeta drive.RemoteEntry
	err := drive.WithRetry(ctx, o.retry, func() error {
		meta, err := lister.FolderMetadata(ctx, run.RootFolderID, accessToken)
		if err != nil {
			return err
		}
		rootMeta = meta
		return nil
	})
	if err != nil {
		// Failure at the root fails the whole run.
		o.tracker.Fail(ctx, run, models.RunError{
			Code:    branchErrorCode(err),
			Message: err.Error(),
			Details: fmt.Sprintf("folder %s", run.RootFolderID),
		})
		return nil, fmt.Errorf("root folder metadata: %w", err)
	}

	sink := NewSink(o.docs, o.extractors, o.contentFetcher(lister, accessToken)).WithStats(o.stats)
	walker := NewWalker(lister, sink, o.tracker, o.retry, o.concurrency).WithStats(o.stats)

	walkErr := walker.Walk(ctx, run, accessToken)
	switch {
	case walkErr == nil:
		o.tracker.Complete(ctx, run)
		o.recordFolder(ctx, run, rootMeta, sink.MimeTypes())
	case errors.Is(walkErr, errStopped):
		// Stop() already set the terminal status; a stopped run keeps
		// its partial progress and is not an error.
	default:
		o.tracker.Fail(ctx, run, models.RunError{
			Code:    branchErrorCode(walkErr),
			Message: walkErr.Error(),
			Details: fmt.Sprintf("folder %s", run.RootFolderID),
		})
		return nil, walkErr
	}

	_, total := run.Counts()
	folders := run.FoldersSeen() - 1 // root itself is not a subfolder
	if folders < 0 {
		folders = 0
	}
	return &StartResult{
		RunID:        run.ID,
		FolderName:   rootMeta.Name,
		TotalFiles:   total,
		TotalFolders: folders,
	}, nil
}

// recordFolder upserts the indexed root folder's metadata for history.
// contentFetcher returns the configured fetcher, or derives one from
// the lister when it can also download content. The provider clients
// implement drive.Downloader, so extraction works out of the box; test
// listers that don't stay metadata-only.
func (o *Orchestrator) contentFetcher(lister drive.Lister, accessToken string) ContentFetcher {
	if o.fetcher != nil {
		return o.fetcher
	}
	dl, ok := lister.(drive.Downloader)
	if !ok {
		return nil
	}
	return func(ctx context.Context, entry drive.RemoteEntry) (io.ReadCloser, error) {
		return dl.Download(ctx, entry.ID, accessToken)
	}
}

func (o *Orchestrator) recordFolder(ctx context.Context, run *Run, rootMeta drive.RemoteEntry, mimeTypes []string) {
	if o.docs == nil {
		return
	}
	processed, total := run.Counts()
	folder := models.DriveFolder{
		UserID:      run.UserID,
		Provider:    run.Provider,
		FolderID:    run.RootFolderID,
		Name:        rootMeta.Name,
		IsIndexed:   true,
		LastIndexed: time.Now(),
		Metadata: map[string]any{
			"total_files":     total,
			"processed_files": processed,
			"total_folders":   run.FoldersSeen() - 1,
			"mime_types":      mimeTypes,
		},
	}
	if err := o.docs.UpsertFolder(ctx, folder); err != nil {
		slog.Warn("failed to record indexed folder", "run_id", run.ID, "error", err)
	}
}
