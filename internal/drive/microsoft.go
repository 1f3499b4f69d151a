package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphClient lists folder children via the Microsoft Graph drive API.
//
// Graph paginates with @odata.nextLink, a full URL for the next page.
// That URL is passed around as the opaque page token.
type GraphClient struct {
	baseURL  string
	pageSize int
	http     *http.Client
}

// NewGraphClient creates a Microsoft Graph listing client.
func NewGraphClient(opts Options) *GraphClient {
	opts = opts.withDefaults()
	base := opts.BaseURL
	if base == "" {
		base = graphBaseURL
	}
	return &GraphClient{
		baseURL:  base,
		pageSize: opts.PageSize,
		http:     &http.Client{Timeout: opts.Timeout},
	}
}

// graphItem is the raw Graph driveItem resource. The folder/file facets
// discriminate the kind; duck-typing on other fields is not needed.
type graphItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Size                 int64  `json:"size"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	Folder               *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	ParentReference *struct {
		ID string `json:"id"`
	} `json:"parentReference"`
}

type graphListResponse struct {
	Value    []graphItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ListChildren returns one page of children. pageToken, when set, is
// the @odata.nextLink from the previous page.
func (c *GraphClient) ListChildren(ctx context.Context, folderID, accessToken, pageToken string) (Page, error) {
	u := pageToken
	if u == "" {
		u = fmt.Sprintf("%s/me/drive/items/%s/children?$top=%s",
			c.baseURL, url.PathEscape(folderID), strconv.Itoa(c.pageSize))
	} else if !strings.HasPrefix(u, c.baseURL) {
		// nextLink always points at the Graph host; anything else means
		// the token got mangled upstream.
		return Page{}, &ProtocolError{Err: fmt.Errorf("unexpected next link: %s", u)}
	}

	var resp graphListResponse
	if err := c.getJSON(ctx, u, accessToken, &resp); err != nil {
		return Page{}, err
	}

	entries := make([]RemoteEntry, 0, len(resp.Value))
	for _, item := range resp.Value {
		entries = append(entries, item.toEntry())
	}
	return Page{Entries: entries, NextPageToken: resp.NextLink}, nil
}

// FolderMetadata fetches a single driveItem.
func (c *GraphClient) FolderMetadata(ctx context.Context, folderID, accessToken string) (RemoteEntry, error) {
	u := fmt.Sprintf("%s/me/drive/items/%s", c.baseURL, url.PathEscape(folderID))

	var item graphItem
	if err := c.getJSON(ctx, u, accessToken, &item); err != nil {
		return RemoteEntry{}, err
	}
	return item.toEntry(), nil
}

// Download streams a driveItem's content. Graph answers with a
// redirect to a pre-authenticated URL; the HTTP client follows it.
func (c *GraphClient) Download(ctx context.Context, fileID, accessToken string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/me/drive/items/%s/content", c.baseURL, url.PathEscape(fileID))
	return openStream(ctx, c.http, u, accessToken)
}

func (i graphItem) toEntry() RemoteEntry {
	kind := KindFile
	mimeType := ""
	if i.Folder != nil {
		kind = KindFolder
	} else if i.File != nil {
		mimeType = i.File.MimeType
	}
	modified, _ := time.Parse(time.RFC3339, i.LastModifiedDateTime)

	var parents []string
	if i.ParentReference != nil && i.ParentReference.ID != "" {
		parents = []string{i.ParentReference.ID}
	}
	return RemoteEntry{
		ID:           i.ID,
		Name:         i.Name,
		Kind:         kind,
		MimeType:     mimeType,
		Size:         i.Size,
		ModifiedTime: modified,
		ParentIDs:    parents,
	}
}

func (c *GraphClient) getJSON(ctx context.Context, rawURL, accessToken string, out any) error {
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
