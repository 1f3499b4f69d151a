package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/driveindex/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateRun inserts a new indexing run record with the given string ID.
func (c *Client) CreateRun(ctx context.Context, id string, run models.IndexingRun) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("indexing_run", $id) SET
			user_id = $user_id,
			provider = $provider,
			root_folder_id = $root_folder_id,
			status = $status,
			total_files = 0,
			processed_files = 0,
			depth = 0,
			settings = $settings
	`, map[string]any{
		"id":             id,
		"user_id":        run.UserID,
		"provider":       string(run.Provider),
		"root_folder_id": run.RootFolderID,
		"status":         string(run.Status),
		"settings":       run.Settings,
	})
	if err != nil {
		return fmt.Errorf("create run: %w", wrapQueryError(err))
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil if not found.
func (c *Client) GetRun(ctx context.Context, id string) (*models.IndexingRun, error) {
	results, err := surrealdb.Query[[]models.IndexingRun](ctx, c.db, `
		SELECT * FROM type::record("indexing_run", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListRuns returns runs, most recent first. An empty userID lists all.
func (c *Client) ListRuns(ctx context.Context, userID string, limit int) ([]models.IndexingRun, error) {
	if limit <= 0 {
		limit = 50
	}
	userClause := ""
	vars := map[string]any{"limit": limit}
	if userID != "" {
		userClause = "WHERE user_id = $user_id"
		vars["user_id"] = userID
	}

	sql := fmt.Sprintf(`
		SELECT * FROM indexing_run %s ORDER BY created_at DESC LIMIT $limit
	`, userClause)

	results, err := surrealdb.Query[[]models.IndexingRun](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.IndexingRun{}, nil
	}
	return (*results)[0].Result, nil
}

// UpdateRunFields applies a partial update to scalar run fields and
// bumps updated_at. Status changes must go through UpdateRunStatus.
func (c *Client) UpdateRunFields(ctx context.Context, id string, fields map[string]any) error {
	// UPDATE takes a single data clause, so updated_at rides along in
	// the merge document instead of a second SET.
	merge := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		merge[k] = v
	}
	merge["updated_at"] = time.Now().UTC()

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("indexing_run", $id) MERGE $fields
	`, map[string]any{"id": id, "fields": merge})
	if err != nil {
		return fmt.Errorf("update run: %w", wrapQueryError(err))
	}
	return nil
}

// AddRunProgress atomically increments the run's counters. Concurrent
// branches call this without coordination; the += happens in the store.
// lastFile, when non-empty, updates last_processed_file (last writer
// wins, it is a UI hint only).
func (c *Client) AddRunProgress(ctx context.Context, id string, processedDelta, totalDelta int, lastFile string) error {
	sql := `
		UPDATE type::record("indexing_run", $id) SET
			processed_files += $processed,
			total_files += $total,
			updated_at = time::now()
	`
	vars := map[string]any{
		"id":        id,
		"processed": processedDelta,
		"total":     totalDelta,
	}
	if lastFile != "" {
		sql = `
			UPDATE type::record("indexing_run", $id) SET
				processed_files += $processed,
				total_files += $total,
				last_processed_file = $last_file,
				updated_at = time::now()
		`
		vars["last_file"] = lastFile
	}

	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("add run progress: %w", wrapQueryError(err))
	}
	return nil
}

// UpdateRunStatus moves a run to the given status if its current status
// is one of allowedFrom. Returns whether the transition was applied.
// The WHERE guard makes the check race-free against concurrent writers.
func (c *Client) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, allowedFrom []models.RunStatus, runErr *models.RunError) (bool, error) {
	allowed := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		allowed[i] = string(s)
	}

	sql := `
		UPDATE type::record("indexing_run", $id) SET
			status = $status,
			updated_at = time::now()
		WHERE status IN $allowed
	`
	vars := map[string]any{
		"id":      id,
		"status":  string(status),
		"allowed": allowed,
	}
	if runErr != nil {
		sql = `
			UPDATE type::record("indexing_run", $id) SET
				status = $status,
				error = $error,
				updated_at = time::now()
			WHERE status IN $allowed
		`
		vars["error"] = runErr
	}

	results, err := surrealdb.Query[[]models.IndexingRun](ctx, c.db, sql, vars)
	if err != nil {
		return false, fmt.Errorf("update run status: %w", wrapQueryError(err))
	}
	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// MarkInterruptedRuns fails any run left in a non-terminal state, e.g.
// after a server crash. A half-walked remote tree cannot be resumed, so
// orphans are failed loudly rather than silently re-run. Returns the
// number of runs swept.
func (c *Client) MarkInterruptedRuns(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]models.IndexingRun](ctx, c.db, `
		UPDATE indexing_run SET
			status = "error",
			error = { code: "interrupted", message: "indexing interrupted by server restart" },
			updated_at = time::now()
		WHERE status IN ["initializing", "running"]
	`, nil)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}
