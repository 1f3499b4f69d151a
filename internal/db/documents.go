package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/driveindex/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// UpsertDocument writes a discovered drive file, keyed by
// (user_id, provider, external_id). Re-indexing the same file updates
// the existing record; the unique index backs the UPSERT so concurrent
// writers on the same key cannot duplicate it.
func (c *Client) UpsertDocument(ctx context.Context, doc models.IndexedDocument) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT indexed_document SET
			user_id = $user_id,
			provider = $provider,
			external_id = $external_id,
			title = $title,
			mime_type = $mime_type,
			file_size = $file_size,
			parent_folder_id = $parent_folder_id,
			status = $status,
			content = $content,
			metadata = $metadata,
			updated_at = time::now()
		WHERE user_id = $user_id
			AND provider = $provider
			AND external_id = $external_id
	`, map[string]any{
		"user_id":          doc.UserID,
		"provider":         string(doc.Provider),
		"external_id":      doc.ExternalID,
		"title":            doc.Title,
		"mime_type":        doc.MimeType,
		"file_size":        doc.FileSize,
		"parent_folder_id": doc.ParentFolderID,
		"status":           string(doc.Status),
		"content":          doc.Content,
		"metadata":         doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("upsert document: %w", wrapQueryError(err))
	}
	return nil
}

// GetDocument fetches one document by its identity key. Returns nil if
// not found.
func (c *Client) GetDocument(ctx context.Context, userID string, provider models.ProviderType, externalID string) (*models.IndexedDocument, error) {
	results, err := surrealdb.Query[[]models.IndexedDocument](ctx, c.db, `
		SELECT * FROM indexed_document
		WHERE user_id = $user_id
			AND provider = $provider
			AND external_id = $external_id
		LIMIT 1
	`, map[string]any{
		"user_id":     userID,
		"provider":    string(provider),
		"external_id": externalID,
	})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListDocuments returns a user's documents, most recently updated first.
func (c *Client) ListDocuments(ctx context.Context, userID string, limit int) ([]models.IndexedDocument, error) {
	if limit <= 0 {
		limit = 100
	}
	results, err := surrealdb.Query[[]models.IndexedDocument](ctx, c.db, `
		SELECT * FROM indexed_document
		WHERE user_id = $user_id
		ORDER BY updated_at DESC
		LIMIT $limit
	`, map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.IndexedDocument{}, nil
	}
	return (*results)[0].Result, nil
}

// CountDocuments counts a user's documents.
func (c *Client) CountDocuments(ctx context.Context, userID string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS count FROM indexed_document
		WHERE user_id = $user_id
		GROUP ALL
	`, map[string]any{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// UpsertFolder records an indexed root folder, keyed by
// (user_id, provider, folder_id).
func (c *Client) UpsertFolder(ctx context.Context, folder models.DriveFolder) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT drive_folder SET
			user_id = $user_id,
			provider = $provider,
			folder_id = $folder_id,
			name = $name,
			is_indexed = $is_indexed,
			last_indexed = time::now(),
			metadata = $metadata
		WHERE user_id = $user_id
			AND provider = $provider
			AND folder_id = $folder_id
	`, map[string]any{
		"user_id":    folder.UserID,
		"provider":   string(folder.Provider),
		"folder_id":  folder.FolderID,
		"name":       folder.Name,
		"is_indexed": folder.IsIndexed,
		"metadata":   folder.Metadata,
	})
	if err != nil {
		return fmt.Errorf("upsert folder: %w", wrapQueryError(err))
	}
	return nil
}
