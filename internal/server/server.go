// Package server provides the HTTP API over the indexing pipeline.
package server

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/raphaelgruber/driveindex/internal/models"
	"github.com/raphaelgruber/driveindex/internal/service"
)

// DocumentReader is the read surface the API exposes over indexed
// documents. *db.Client satisfies it.
type DocumentReader interface {
	ListDocuments(ctx context.Context, userID string, limit int) ([]models.IndexedDocument, error)
	CountDocuments(ctx context.Context, userID string) (int, error)
}

// Server hosts the REST API.
type Server struct {
	app          *fiber.App
	orchestrator *service.Orchestrator
	tracker      *service.Tracker
	docs         DocumentReader
	logger       *slog.Logger
}

// New builds the fiber app with all routes registered.
func New(orchestrator *service.Orchestrator, tracker *service.Tracker, docs DocumentReader, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName: "driveindex API",
	})

	s := &Server{
		app:          app,
		orchestrator: orchestrator,
		tracker:      tracker,
		docs:         docs,
		logger:       logger,
	}

	app.Use(requestLogger(logger))

	app.Get("/healthz", s.health)

	api := app.Group("/api")
	api.Post("/index", s.startIndex)
	api.Post("/index/stop", s.stopIndex)
	api.Get("/runs", s.listRuns)
	api.Get("/runs/:id", s.getRun)
	api.Get("/documents", s.listDocuments)
	api.Get("/stats", s.stats)

	return s
}

// App returns the underlying fiber app (used by tests via app.Test).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("starting HTTP server", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "driveindex",
	})
}

// stats returns in-memory runtime statistics (resets on restart).
func (s *Server) stats(c fiber.Ctx) error {
	return c.JSON(s.orchestrator.Stats().Snapshot())
}
