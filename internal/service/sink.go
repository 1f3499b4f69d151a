package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/driveindex/internal/drive"
	"github.com/raphaelgruber/driveindex/internal/metrics"
	"github.com/raphaelgruber/driveindex/internal/models"
)

// ContentFetcher opens a file's content stream for extraction. It is
// optional: when nil, documents are stored metadata-only and content is
// backfilled by a separate extraction pass.
type ContentFetcher func(ctx context.Context, entry drive.RemoteEntry) (io.ReadCloser, error)

// Sink persists discovered files as indexed documents. Upserts are
// keyed by (user, provider, external id), so re-indexing the same file
// updates rather than duplicates, and concurrent calls for different
// files need no coordination.
type Sink struct {
	store      DocumentStore
	extractors *ExtractorRegistry
	fetcher    ContentFetcher
	stats      *metrics.Collector

	mu        sync.Mutex
	mimeTypes map[string]struct{}
}

// NewSink creates a sink. extractors and fetcher may be nil to disable
// inline content extraction, and store may be nil for runs that only
// count and report without persisting documents.
func NewSink(store DocumentStore, extractors *ExtractorRegistry, fetcher ContentFetcher) *Sink {
	return &Sink{
		store:      store,
		extractors: extractors,
		fetcher:    fetcher,
		mimeTypes:  make(map[string]struct{}),
	}
}

// WithStats attaches a metrics collector to the sink.
func (s *Sink) WithStats(stats *metrics.Collector) *Sink {
	s.stats = stats
	return s
}

// Store upserts one file's metadata, extracting content inline when an
// extractor is registered for its MIME type and a fetcher is wired.
// Extraction failures downgrade the document to error status; they do
// not fail the call. Only the store write itself can return an error.
func (s *Sink) Store(ctx context.Context, userID string, provider models.ProviderType, entry drive.RemoteEntry, parentFolderID string) error {
	doc := models.IndexedDocument{
		UserID:         userID,
		Provider:       provider,
		ExternalID:     entry.ID,
		Title:          entry.Name,
		MimeType:       entry.MimeType,
		FileSize:       entry.Size,
		ParentFolderID: parentFolderID,
		Status:         models.DocumentStatusIndexed,
		Metadata: map[string]any{
			"size":          entry.Size,
			"modified_time": entry.ModifiedTime.Format(time.RFC3339),
		},
	}

	if content, ok := s.extract(ctx, entry); ok {
		doc.Content = content
	} else if s.extractable(entry.MimeType) {
		doc.Status = models.DocumentStatusError
	}

	if s.store != nil {
		start := time.Now()
		if err := s.store.UpsertDocument(ctx, doc); err != nil {
			return fmt.Errorf("store document %s: %w", entry.ID, err)
		}
		s.stats.RecordTiming(metrics.OpDocUpsert, time.Since(start))
	}

	if entry.MimeType != "" {
		s.mu.Lock()
		s.mimeTypes[entry.MimeType] = struct{}{}
		s.mu.Unlock()
	}
	return nil
}

// MimeTypes returns the distinct MIME types stored so far, sorted.
func (s *Sink) MimeTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.mimeTypes))
	for t := range s.mimeTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// extractable reports whether inline extraction would run for this
// MIME type.
func (s *Sink) extractable(mimeType string) bool {
	return s.fetcher != nil && s.extractors != nil && s.extractors.Supports(mimeType)
}

// extract returns (content, true) on success. A false return with an
// extractable type means extraction failed. Types without an extractor
// return (nil, true): skipping extraction is not a failure.
func (s *Sink) extract(ctx context.Context, entry drive.RemoteEntry) (*string, bool) {
	if !s.extractable(entry.MimeType) {
		return nil, true
	}

	reader, err := s.fetcher(ctx, entry)
	if err != nil {
		slog.Warn("content fetch failed", "file", entry.Name, "mime_type", entry.MimeType, "error", err)
		return nil, false
	}
	defer reader.Close()

	start := time.Now()
	content, err := s.extractors.Extract(ctx, entry.MimeType, reader)
	s.stats.RecordTiming(metrics.OpExtract, time.Since(start))
	if err != nil {
		slog.Warn("content extraction failed", "file", entry.Name, "mime_type", entry.MimeType, "error", err)
		return nil, false
	}
	return &content, true
}
