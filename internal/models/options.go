package models

// Default traversal bounds.
const (
	DefaultMaxDepth  = 10
	DefaultBatchSize = 100
)

// IndexingOptions configures one traversal. The zero value is not
// usable directly; call Normalize (or start from DefaultOptions) first.
type IndexingOptions struct {
	// Recursive descends into subfolders. Defaults to true.
	Recursive bool `json:"recursive"`
	// MaxDepth bounds traversal depth relative to the root (0 = root only
	// counts as depth 0; files at depth <= MaxDepth are indexed).
	MaxDepth int `json:"maxDepth"`
	// BatchSize is the page size requested per listing call.
	BatchSize int `json:"batchSize"`
	// FileTypes restricts indexing to the given MIME types. Empty = all.
	FileTypes []string `json:"fileTypes,omitempty"`
	// ExcludeFolders skips the given folder IDs and their subtrees.
	ExcludeFolders []string `json:"excludeFolders,omitempty"`
}

// DefaultOptions returns options with defaults applied.
func DefaultOptions() IndexingOptions {
	return IndexingOptions{
		Recursive: true,
		MaxDepth:  DefaultMaxDepth,
		BatchSize: DefaultBatchSize,
	}
}

// Normalize clamps out-of-range values to defaults.
func (o IndexingOptions) Normalize() IndexingOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// WantsType reports whether a file of the given MIME type passes the
// FileTypes filter.
func (o IndexingOptions) WantsType(mimeType string) bool {
	if len(o.FileTypes) == 0 {
		return true
	}
	for _, t := range o.FileTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// Excluded reports whether the folder ID is excluded from traversal.
func (o IndexingOptions) Excluded(folderID string) bool {
	for _, id := range o.ExcludeFolders {
		if id == folderID {
			return true
		}
	}
	return false
}

// Settings converts options to the persisted run settings snapshot.
func (o IndexingOptions) Settings() RunSettings {
	return RunSettings{
		Recursive:      o.Recursive,
		MaxDepth:       o.MaxDepth,
		BatchSize:      o.BatchSize,
		FileTypes:      o.FileTypes,
		ExcludeFolders: o.ExcludeFolders,
	}
}
