package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/raphaelgruber/driveindex/internal/models"
	"github.com/raphaelgruber/driveindex/internal/service"
)

const defaultListLimit = 50

// indexRequest is the POST /api/index body. Options fields are
// pointers so an absent field keeps its default while an explicit
// false/zero is honored.
type indexRequest struct {
	UserID     string          `json:"userId"`
	FolderID   string          `json:"folderId"`
	Provider   string          `json:"provider"`
	Mode       string          `json:"mode"` // "singleton" (default) or "batch"
	Action     string          `json:"action"`
	ProgressID string          `json:"progressId"`
	Options    *optionsPayload `json:"options"`
}

type optionsPayload struct {
	Recursive      *bool    `json:"recursive"`
	MaxDepth       *int     `json:"maxDepth"`
	BatchSize      *int     `json:"batchSize"`
	FileTypes      []string `json:"fileTypes"`
	ExcludeFolders []string `json:"excludeFolders"`
}

func (p *optionsPayload) toOptions() models.IndexingOptions {
	opts := models.DefaultOptions()
	if p == nil {
		return opts
	}
	if p.Recursive != nil {
		opts.Recursive = *p.Recursive
	}
	if p.MaxDepth != nil {
		opts.MaxDepth = *p.MaxDepth
	}
	if p.BatchSize != nil {
		opts.BatchSize = *p.BatchSize
	}
	opts.FileTypes = p.FileTypes
	opts.ExcludeFolders = p.ExcludeFolders
	return opts
}

// startIndex starts an indexing run. Singleton mode runs traversal
// synchronously and returns the final counts; batch mode returns the
// run ID immediately while traversal continues server-side. A body
// with action "stop" is routed to the stop path so existing clients
// keep working.
func (s *Server) startIndex(c fiber.Ctx) error {
	var req indexRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if req.Action == "stop" {
		return s.stop(c, req.ProgressID)
	}

	opts := req.Options.toOptions()
	start := service.StartRequest{
		UserID:   req.UserID,
		FolderID: req.FolderID,
		Provider: models.ProviderType(req.Provider),
		Options:  &opts,
	}

	if req.Mode == "batch" {
		runID, err := s.orchestrator.StartAsync(c.Context(), start)
		if err != nil {
			return s.apiError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"progressId": runID,
		})
	}

	result, err := s.orchestrator.Start(c.Context(), start)
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"progressId":    result.RunID,
		"total_files":   result.TotalFiles,
		"total_folders": result.TotalFolders,
		"folder_name":   result.FolderName,
	})
}

// stopIndex is the dedicated stop endpoint.
func (s *Server) stopIndex(c fiber.Ctx) error {
	var req indexRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	return s.stop(c, req.ProgressID)
}

func (s *Server) stop(c fiber.Ctx, runID string) error {
	if runID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "progressId is required"})
	}
	applied, err := s.orchestrator.Stop(c.Context(), runID)
	if err != nil {
		return s.apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": applied,
		"status":  string(models.RunStatusStopped),
	})
}

// getRun returns the current state of one run. In-memory state wins
// over the stored record while the run is live.
func (s *Server) getRun(c fiber.Ctx) error {
	id := c.Params("id")
	record, err := s.tracker.GetRecord(c.Context(), id)
	if err != nil {
		return s.apiError(c, err)
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "run not found"})
	}
	return c.JSON(runPayload(id, record))
}

// listRuns returns recent runs for a user, newest first.
func (s *Server) listRuns(c fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
	}
	limit := fiber.Query(c, "limit", defaultListLimit)

	records, err := s.tracker.ListRecords(c.Context(), userID, limit)
	if err != nil {
		return s.apiError(c, err)
	}

	runs := make([]fiber.Map, 0, len(records))
	for i := range records {
		id, err := models.RecordIDString(records[i].ID)
		if err != nil {
			s.logger.Warn("skipping run with malformed id", "error", err)
			continue
		}
		runs = append(runs, runPayload(id, &records[i]))
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// listDocuments returns indexed documents for a user with the total
// count.
func (s *Server) listDocuments(c fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
	}
	limit := fiber.Query(c, "limit", defaultListLimit)

	docs, err := s.docs.ListDocuments(c.Context(), userID, limit)
	if err != nil {
		return s.apiError(c, err)
	}
	count, err := s.docs.CountDocuments(c.Context(), userID)
	if err != nil {
		return s.apiError(c, err)
	}
	if docs == nil {
		docs = []models.IndexedDocument{}
	}
	return c.JSON(fiber.Map{
		"documents": docs,
		"count":     count,
	})
}

// runPayload shapes a run record for API responses.
func runPayload(id string, record *models.IndexingRun) fiber.Map {
	payload := fiber.Map{
		"progressId":        id,
		"userId":            record.UserID,
		"provider":          record.Provider,
		"folderId":          record.RootFolderID,
		"status":            record.Status,
		"totalFiles":        record.TotalFiles,
		"processedFiles":    record.ProcessedFiles,
		"depth":             record.Depth,
		"lastProcessedFile": record.LastProcessedFile,
		"createdAt":         record.CreatedAt,
		"updatedAt":         record.UpdatedAt,
	}
	if record.CurrentFolderID != "" {
		payload["currentFolderId"] = record.CurrentFolderID
	}
	if record.Error != nil {
		payload["error"] = record.Error
	}
	return payload
}

// apiError maps pipeline errors onto HTTP status codes.
func (s *Server) apiError(c fiber.Ctx, err error) error {
	switch {
	case service.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case service.IsAuth(err):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrRunNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
