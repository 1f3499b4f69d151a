package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	googleBaseURL    = "https://www.googleapis.com/drive/v3"
	googleFolderMime = "application/vnd.google-apps.folder"

	// listFields selects only what the walker needs; everything else is
	// wasted response bytes at pageSize 100+.
	googleListFields = "nextPageToken,files(id,name,mimeType,size,modifiedTime,parents)"
	googleMetaFields = "id,name,mimeType,parents"
)

// GoogleClient lists folder children via the Drive v3 files.list API.
type GoogleClient struct {
	baseURL  string
	pageSize int
	http     *http.Client
}

// NewGoogleClient creates a Drive v3 listing client.
func NewGoogleClient(opts Options) *GoogleClient {
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = googleBaseURL
	}
	return &GoogleClient{
		baseURL:  base,
		pageSize: opts.PageSize,
		http:     &http.Client{Timeout: opts.Timeout},
	}
}

// googleFile is the raw Drive v3 file resource. Size comes back as a
// decimal string, not a number.
type googleFile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	Size         string   `json:"size"`
	ModifiedTime string   `json:"modifiedTime"`
	Parents      []string `json:"parents"`
}

type googleListResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	Files         []googleFile `json:"files"`
}

// ListChildren returns one page of direct, non-trashed children.
func (c *GoogleClient) ListChildren(ctx context.Context, folderID, accessToken, pageToken string) (Page, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("'%s' in parents and trashed=false", folderID))
	q.Set("fields", googleListFields)
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var resp googleListResponse
	if err := c.getJSON(ctx, c.baseURL+"/files?"+q.Encode(), accessToken, &resp); err != nil {
		return Page{}, err
	}

	entries := make([]RemoteEntry, 0, len(resp.Files))
	for _, f := range resp.Files {
		entries = append(entries, f.toEntry())
	}
	return Page{Entries: entries, NextPageToken: resp.NextPageToken}, nil
}

// FolderMetadata fetches a single folder's name and parents.
func (c *GoogleClient) FolderMetadata(ctx context.Context, folderID, accessToken string) (RemoteEntry, error) {
	u := fmt.Sprintf("%s/files/%s?fields=%s", c.baseURL, url.PathEscape(folderID), url.QueryEscape(googleMetaFields))

	var f googleFile
	if err := c.getJSON(ctx, u, accessToken, &f); err != nil {
		return RemoteEntry{}, err
	}
	return f.toEntry(), nil
}

// Download streams a file's content via files.get with alt=media.
// Google-native types (Docs, Sheets) need an export instead and are
// not supported here.
func (c *GoogleClient) Download(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(fileID))
	return openStream(ctx, c.http, u, accessToken)
}

func (f googleFile) toEntry() RemoteEntry {
	kind := KindFile
	if f.MimeType == googleFolderMime {
		kind = KindFolder
	}
	size, _ := strconv.ParseInt(f.Size, 10, 64)
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return RemoteEntry{
		ID:           f.ID,
		Name:         f.Name,
		Kind:         kind,
		MimeType:     f.MimeType,
		Size:         size,
		ModifiedTime: modified,
		ParentIDs:    f.Parents,
	}
}

func (c *GoogleClient) getJSON(ctx context.Context, rawURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderAPIError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Err: err}
	}
	return nil
}

// readErrorMessage extracts a human-readable message from an error
// response body, falling back to the raw (truncated) body.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil || len(body) == 0 {
		return "no response body"
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}
