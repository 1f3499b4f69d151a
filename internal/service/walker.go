package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/driveindex/internal/drive"
	"github.com/raphaelgruber/driveindex/internal/metrics"
	"github.com/raphaelgruber/driveindex/internal/models"
)

// Walker traverses a remote folder tree, forwarding files to the sink
// and recursing into subfolders up to the configured depth.
//
// Subfolder branches run concurrently, but the semaphore bounds the
// number of in-flight listing calls, not goroutines: a branch waiting
// on its children holds no slot, so recursion cannot deadlock the pool.
type Walker struct {
	lister      drive.Lister
	sink        *Sink
	tracker     *Tracker
	retry       drive.RetryPolicy
	concurrency int
	stats       *metrics.Collector
}

// NewWalker creates a walker. concurrency bounds parallel folder
// listings; values below 1 mean sequential traversal.
func NewWalker(lister drive.Lister, sink *Sink, tracker *Tracker, retry drive.RetryPolicy, concurrency int) *Walker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Walker{
		lister:      lister,
		sink:        sink,
		tracker:     tracker,
		retry:       retry,
		concurrency: concurrency,
	}
}

// WithStats attaches a metrics collector to the walker.
func (w *Walker) WithStats(stats *metrics.Collector) *Walker {
	w.stats = stats
	return w
}

// Walk traverses the tree rooted at the run's root folder. It returns
// errStopped on cooperative stop and the listing error if the root
// itself cannot be listed; subtree failures are recorded against the
// run and do not propagate, so sibling branches always continue.
func (w *Walker) Walk(ctx context.Context, run *Run, accessToken string) error {
	opts := run.Options.Normalize()
	sem := make(chan struct{}, w.concurrency)
	return w.walkFolder(ctx, run, accessToken, run.RootFolderID, 0, opts, sem)
}

func (w *Walker) walkFolder(ctx context.Context, run *Run, accessToken, folderID string, depth int, opts models.IndexingOptions, sem chan struct{}) error {
	if err := w.checkStop(ctx, run); err != nil {
		return err
	}

	// Publish position before descending so a concurrent observer sees
	// where the walk is.
	w.tracker.SetPosition(ctx, run, folderID, depth)

	entries, err := w.listAll(ctx, run, accessToken, folderID, sem)
	if err != nil {
		return err
	}

	var folders, files []drive.RemoteEntry
	for _, entry := range entries {
		switch entry.Kind {
		case drive.KindFolder:
			folders = append(folders, entry)
		default:
			if opts.WantsType(entry.MimeType) {
				files = append(files, entry)
			}
		}
	}

	// Revise the total upward as the tree is discovered; it stays an
	// estimate until traversal completes.
	w.tracker.AddTotal(ctx, run, len(files))

	slog.Debug("listed folder", "run_id", run.ID, "folder", folderID, "depth", depth,
		"files", len(files), "subfolders", len(folders))

	for _, file := range files {
		if err := w.sink.Store(ctx, run.UserID, run.Provider, file, folderID); err != nil {
			// A single file failing must never abort the run.
			slog.Error("failed to persist file", "run_id", run.ID, "file", file.Name, "error", err)
			w.tracker.Annotate(ctx, run, models.RunError{
				Code:    "sink_error",
				Message: err.Error(),
				Details: file.Name,
			})
			continue
		}
		w.tracker.AddProcessed(ctx, run, 1, file.Name)
	}

	if !opts.Recursive || depth+1 > opts.MaxDepth {
		return nil
	}

	var wg sync.WaitGroup
	var stopped atomic.Bool
	for _, folder := range folders {
		if opts.Excluded(folder.ID) {
			slog.Debug("skipping excluded folder", "run_id", run.ID, "folder", folder.ID)
			continue
		}

		wg.Add(1)
		go func(folder drive.RemoteEntry) {
			defer wg.Done()
			err := w.walkFolder(ctx, run, accessToken, folder.ID, depth+1, opts, sem)
			switch {
			case err == nil:
			case errors.Is(err, errStopped):
				stopped.Store(true)
			default:
				// Branch failure: record and keep walking siblings.
				slog.Warn("branch failed", "run_id", run.ID, "folder", folder.ID, "error", err)
				w.tracker.Annotate(ctx, run, models.RunError{
					Code:    branchErrorCode(err),
					Message: err.Error(),
					Details: fmt.Sprintf("folder %s (%s)", folder.Name, folder.ID),
				})
			}
		}(folder)
	}
	wg.Wait()

	if stopped.Load() {
		return errStopped
	}
	return nil
}

// listAll follows pagination until exhausted, with bounded retries per
// page. The stop flag is checked between listing calls, never mid-file.
func (w *Walker) listAll(ctx context.Context, run *Run, accessToken, folderID string, sem chan struct{}) ([]drive.RemoteEntry, error) {
	var entries []drive.RemoteEntry
	pageToken := ""
	for {
		if err := w.checkStop(ctx, run); err != nil {
			return nil, err
		}

		var page drive.Page
		err := func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			return drive.WithRetry(ctx, w.retry, func() error {
				start := time.Now()
				p, err := w.lister.ListChildren(ctx, folderID, accessToken, pageToken)
				if err != nil {
					return err
				}
				w.stats.RecordListing(time.Since(start), int64(len(p.Entries)))
				page = p
				return nil
			})
		}()
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, err)
		}

		entries = append(entries, page.Entries...)
		if page.NextPageToken == "" {
			return entries, nil
		}
		pageToken = page.NextPageToken
	}
}

func (w *Walker) checkStop(ctx context.Context, run *Run) error {
	if run.Stopped() {
		return errStopped
	}
	if err := ctx.Err(); err != nil {
		// The orchestrator cancels the context when stopping a run, so
		// cancellation usually is a stop; anything else propagates.
		if run.Stopped() {
			return errStopped
		}
		return err
	}
	return nil
}

func branchErrorCode(err error) string {
	if drive.AuthFailure(err) {
		return "auth_error"
	}
	var apiErr *drive.ProviderAPIError
	if errors.As(err, &apiErr) {
		return "provider_error"
	}
	var protocolErr *drive.ProtocolError
	if errors.As(err, &protocolErr) {
		return "protocol_error"
	}
	var transient *drive.TransientError
	if errors.As(err, &transient) {
		return "transient_error"
	}
	return "branch_error"
}
