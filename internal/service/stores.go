package service

import (
	"context"

	"github.com/raphaelgruber/driveindex/internal/models"
)

// RunStore is the persistence surface the tracker needs. *db.Client
// satisfies it; tests substitute an in-memory fake or nil.
type RunStore interface {
	CreateRun(ctx context.Context, id string, run models.IndexingRun) error
	GetRun(ctx context.Context, id string) (*models.IndexingRun, error)
	ListRuns(ctx context.Context, userID string, limit int) ([]models.IndexingRun, error)
	UpdateRunFields(ctx context.Context, id string, fields map[string]any) error
	AddRunProgress(ctx context.Context, id string, processedDelta, totalDelta int, lastFile string) error
	UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, allowedFrom []models.RunStatus, runErr *models.RunError) (bool, error)
}

// DocumentStore is the persistence surface the sink needs.
type DocumentStore interface {
	UpsertDocument(ctx context.Context, doc models.IndexedDocument) error
	UpsertFolder(ctx context.Context, folder models.DriveFolder) error
}
