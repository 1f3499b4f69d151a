package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Extractor turns a file's raw content stream into indexable text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// ExtractorRegistry maps MIME types to extraction strategies. Types
// without a registered extractor are stored metadata-only; PDF and
// Google-native conversions stay with the external extraction pass.
type ExtractorRegistry struct {
	byMime map[string]Extractor
}

// NewExtractorRegistry returns a registry with the built-in text-based
// extractors registered.
func NewExtractorRegistry() *ExtractorRegistry {
	reg := &ExtractorRegistry{byMime: make(map[string]Extractor)}
	reg.Register("text/plain", loaderExtractor(func(r io.Reader) loader { return documentloaders.NewText(r) }))
	reg.Register("text/markdown", loaderExtractor(func(r io.Reader) loader { return documentloaders.NewText(r) }))
	reg.Register("text/html", loaderExtractor(func(r io.Reader) loader { return documentloaders.NewHTML(r) }))
	reg.Register("text/csv", loaderExtractor(func(r io.Reader) loader { return documentloaders.NewCSV(r) }))
	return reg
}

// Register adds or replaces the extractor for a MIME type.
func (reg *ExtractorRegistry) Register(mimeType string, e Extractor) {
	reg.byMime[mimeType] = e
}

// Supports reports whether an extractor is registered for the type.
func (reg *ExtractorRegistry) Supports(mimeType string) bool {
	_, ok := reg.byMime[mimeType]
	return ok
}

// Extract runs the registered extractor for the MIME type.
func (reg *ExtractorRegistry) Extract(ctx context.Context, mimeType string, r io.Reader) (string, error) {
	e, ok := reg.byMime[mimeType]
	if !ok {
		return "", fmt.Errorf("no extractor for %q", mimeType)
	}
	return e.Extract(ctx, r)
}

// loader is the subset of langchaingo's document loaders we use.
type loader interface {
	Load(ctx context.Context) ([]schema.Document, error)
}

// loaderExtractor adapts a langchaingo document loader constructor to
// the Extractor interface, joining loaded pages into one text blob.
type loaderExtractor func(r io.Reader) loader

func (f loaderExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	docs, err := f(r).Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.PageContent != "" {
			parts = append(parts, doc.PageContent)
		}
	}
	return strings.Join(parts, "\n"), nil
}
