package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/driveindex/internal/drive"
	"github.com/raphaelgruber/driveindex/internal/models"
)

func stringFetcher(content string) ContentFetcher {
	return func(ctx context.Context, entry drive.RemoteEntry) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}
}

func TestSinkStoresMetadataOnlyWithoutFetcher(t *testing.T) {
	docs := newMemDocStore()
	sink := NewSink(docs, NewExtractorRegistry(), nil)

	entry := testFile("f1", "notes.txt", "text/plain")
	require.NoError(t, sink.Store(context.Background(), "u1", models.ProviderGoogle, entry, "parent"))

	doc, ok := docs.get("u1", models.ProviderGoogle, "f1")
	require.True(t, ok)
	assert.Equal(t, "notes.txt", doc.Title)
	assert.Equal(t, "parent", doc.ParentFolderID)
	assert.Equal(t, models.DocumentStatusIndexed, doc.Status)
	assert.Nil(t, doc.Content)
	assert.Equal(t, "2026-08-01T12:00:00Z", doc.Metadata["modified_time"])
}

func TestSinkToleratesNilStore(t *testing.T) {
	sink := NewSink(nil, nil, nil)

	require.NoError(t, sink.Store(context.Background(), "u1", models.ProviderGoogle, testFile("f1", "a.txt", "text/plain"), ""))
	require.NoError(t, sink.Store(context.Background(), "u1", models.ProviderGoogle, testFile("f2", "b.csv", "text/csv"), ""))

	assert.Equal(t, []string{"text/csv", "text/plain"}, sink.MimeTypes())
}

func TestSinkExtractsInlineContent(t *testing.T) {
	docs := newMemDocStore()
	sink := NewSink(docs, NewExtractorRegistry(), stringFetcher("hello drive"))

	entry := testFile("f1", "notes.txt", "text/plain")
	require.NoError(t, sink.Store(context.Background(), "u1", models.ProviderGoogle, entry, ""))

	doc, _ := docs.get("u1", models.ProviderGoogle, "f1")
	require.NotNil(t, doc.Content)
	assert.Equal(t, "hello drive", *doc.Content)
	assert.Equal(t, models.DocumentStatusIndexed, doc.Status)
}

func TestSinkUnsupportedMimeStaysIndexed(t *testing.T) {
	docs := newMemDocStore()
	sink := NewSink(docs, NewExtractorRegistry(), stringFetcher("binary"))

	entry := testFile("f1", "scan.pdf", "application/pdf")
	require.NoError(t, sink.Store(context.Background(), "u1", models.ProviderGoogle, entry, ""))

	doc, _ := docs.get("u1", models.ProviderGoogle, "f1")
	assert.Nil(t, doc.Content)
	assert.Equal(t, models.DocumentStatusIndexed, doc.Status, "no extractor is a skip, not a failure")
}

func TestSinkFetchFailureDowngradesStatus(t *testing.T) {
	docs := newMemDocStore()
	fetcher := func(ctx context.Context, entry drive.RemoteEntry) (io.ReadCloser, error) {
		return nil, errors.New("download quota exceeded")
	}
	sink := NewSink(docs, NewExtractorRegistry(), fetcher)

	entry := testFile("f1", "notes.txt", "text/plain")
	require.NoError(t, sink.Store(context.Background(), "u1", models.ProviderGoogle, entry, ""),
		"extraction failure must not fail the store call")

	doc, _ := docs.get("u1", models.ProviderGoogle, "f1")
	assert.Nil(t, doc.Content)
	assert.Equal(t, models.DocumentStatusError, doc.Status)
}

func TestSinkReindexUpdatesInPlace(t *testing.T) {
	docs := newMemDocStore()
	sink := NewSink(docs, nil, nil)
	ctx := context.Background()

	entry := testFile("f1", "notes.txt", "text/plain")
	require.NoError(t, sink.Store(ctx, "u1", models.ProviderGoogle, entry, ""))

	entry.Name = "renamed.txt"
	require.NoError(t, sink.Store(ctx, "u1", models.ProviderGoogle, entry, ""))

	assert.Equal(t, 1, docs.count(), "same identity upserts in place")
	doc, _ := docs.get("u1", models.ProviderGoogle, "f1")
	assert.Equal(t, "renamed.txt", doc.Title)
}

func TestSinkStoreErrorPropagates(t *testing.T) {
	docs := newMemDocStore()
	docs.failFor["f1"] = errors.New("db unavailable")
	sink := NewSink(docs, nil, nil)

	err := sink.Store(context.Background(), "u1", models.ProviderGoogle, testFile("f1", "a.txt", "text/plain"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store document f1")
}

func TestExtractorRegistry(t *testing.T) {
	reg := NewExtractorRegistry()
	ctx := context.Background()

	assert.True(t, reg.Supports("text/plain"))
	assert.True(t, reg.Supports("text/csv"))
	assert.False(t, reg.Supports("application/pdf"))

	text, err := reg.Extract(ctx, "text/plain", strings.NewReader("plain body"))
	require.NoError(t, err)
	assert.Equal(t, "plain body", text)

	html, err := reg.Extract(ctx, "text/html", strings.NewReader("<html><body><p>rendered</p></body></html>"))
	require.NoError(t, err)
	assert.Contains(t, html, "rendered")

	_, err = reg.Extract(ctx, "application/pdf", strings.NewReader("%PDF"))
	assert.Error(t, err)
}
