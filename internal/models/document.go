package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ProviderType identifies a cloud-drive provider.
type ProviderType string

const (
	ProviderGoogle    ProviderType = "google"
	ProviderMicrosoft ProviderType = "microsoft"
)

// Valid reports whether p names a known provider.
func (p ProviderType) Valid() bool {
	return p == ProviderGoogle || p == ProviderMicrosoft
}

// DocumentStatus is the indexing state of a stored document.
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusIndexed DocumentStatus = "indexed"
	DocumentStatusError   DocumentStatus = "error"
)

// IndexedDocument is a discovered drive file persisted by the sink.
// Uniqueness is enforced on (user_id, provider, external_id), so
// re-indexing the same file updates the record in place.
type IndexedDocument struct {
	ID             surrealmodels.RecordID `json:"id"`
	UserID         string                 `json:"user_id"`
	Provider       ProviderType           `json:"provider"`
	ExternalID     string                 `json:"external_id"`
	Title          string                 `json:"title"`
	MimeType       string                 `json:"mime_type"`
	FileSize       int64                  `json:"file_size"`
	ParentFolderID string                 `json:"parent_folder_id"`
	Status         DocumentStatus         `json:"status"`
	Content        *string                `json:"content,omitempty"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// DriveFolder records an indexed root folder's metadata for UI history.
type DriveFolder struct {
	ID          surrealmodels.RecordID `json:"id"`
	UserID      string                 `json:"user_id"`
	Provider    ProviderType           `json:"provider"`
	FolderID    string                 `json:"folder_id"`
	Name        string                 `json:"name"`
	IsIndexed   bool                   `json:"is_indexed"`
	LastIndexed time.Time              `json:"last_indexed"`
	Metadata    map[string]any         `json:"metadata,omitempty"`
}
