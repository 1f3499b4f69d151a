// Package drive provides paginated listing clients for cloud-drive
// providers, normalizing their heterogeneous responses into a common
// entry shape.
package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/raphaelgruber/driveindex/internal/models"
)

// EntryKind classifies a remote entry.
type EntryKind string

const (
	KindFolder EntryKind = "folder"
	KindFile   EntryKind = "file"
)

// RemoteEntry is one item returned by a provider's folder listing.
// Entries are transient: consumed during a traversal step, never stored.
type RemoteEntry struct {
	ID           string
	Name         string
	Kind         EntryKind
	MimeType     string
	Size         int64
	ModifiedTime time.Time
	ParentIDs    []string
}

// Page is one page of a folder listing. An empty NextPageToken means
// the listing is exhausted.
type Page struct {
	Entries       []RemoteEntry
	NextPageToken string
}

// Lister lists direct, non-trashed children of a folder, one page at a
// time. Implementations do not recurse and do not refresh tokens; the
// caller supplies a valid access token and loops until NextPageToken
// comes back empty.
type Lister interface {
	ListChildren(ctx context.Context, folderID, accessToken, pageToken string) (Page, error)
	FolderMetadata(ctx context.Context, folderID, accessToken string) (RemoteEntry, error)
}

// Downloader opens a file's raw content stream. Both provider clients
// implement it alongside Lister; the caller closes the stream.
type Downloader interface {
	Download(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error)
}

// openStream performs an authorized GET and hands back the body.
func openStream(ctx context.Context, client *http.Client, rawURL, accessToken string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &ProviderAPIError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}
	return resp.Body, nil
}

// Options tunes the HTTP clients.
type Options struct {
	// PageSize is the page size requested per listing call.
	PageSize int
	// Timeout bounds each remote call. A timed-out call surfaces as a
	// TransientError.
	Timeout time.Duration
	// BaseURL overrides the provider endpoint (tests only).
	BaseURL string
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = models.DefaultBatchSize
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	return o
}

// ForProvider returns the listing client for the given provider type.
func ForProvider(provider models.ProviderType, opts Options) (Lister, error) {
	switch provider {
	case models.ProviderGoogle:
		return NewGoogleClient(opts), nil
	case models.ProviderMicrosoft:
		return NewGraphClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", provider)
	}
}
