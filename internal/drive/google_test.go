package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleListChildrenPagination(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "'root' in parents and trashed=false", r.URL.Query().Get("q"))
		require.Equal(t, "2", r.URL.Query().Get("pageSize"))
		requests = append(requests, r.URL.Query().Get("pageToken"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprint(w, `{
				"nextPageToken": "page-2",
				"files": [
					{"id": "f1", "name": "a.txt", "mimeType": "text/plain", "size": "1024", "modifiedTime": "2026-08-01T10:00:00Z", "parents": ["root"]},
					{"id": "d1", "name": "Sub", "mimeType": "application/vnd.google-apps.folder", "parents": ["root"]}
				]
			}`)
			return
		}
		fmt.Fprint(w, `{
			"files": [
				{"id": "f2", "name": "b.csv", "mimeType": "text/csv", "size": "99", "parents": ["root"]}
			]
		}`)
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{PageSize: 2, BaseURL: srv.URL})
	ctx := context.Background()

	page, err := c.ListChildren(ctx, "root", "tok-1", "")
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "page-2", page.NextPageToken)

	assert.Equal(t, KindFile, page.Entries[0].Kind)
	assert.Equal(t, int64(1024), page.Entries[0].Size)
	assert.Equal(t, []string{"root"}, page.Entries[0].ParentIDs)
	assert.Equal(t, KindFolder, page.Entries[1].Kind)

	page, err = c.ListChildren(ctx, "root", "tok-1", page.NextPageToken)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Empty(t, page.NextPageToken)
	assert.Equal(t, "f2", page.Entries[0].ID)

	assert.Equal(t, []string{"", "page-2"}, requests)
}

func TestGoogleListChildrenAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"message": "Insufficient Permission"}}`)
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	_, err := c.ListChildren(context.Background(), "root", "bad-token", "")
	require.Error(t, err)

	var apiErr *ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "Insufficient Permission", apiErr.Message)
	assert.True(t, AuthFailure(err))
	assert.False(t, Retryable(err))
}

func TestGoogleListChildrenServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "backend unavailable")
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	_, err := c.ListChildren(context.Background(), "root", "tok", "")
	require.Error(t, err)

	var apiErr *ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "backend unavailable", apiErr.Message)
	assert.True(t, Retryable(err))
	assert.False(t, AuthFailure(err))
}

func TestGoogleListChildrenMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files": [`)
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	_, err := c.ListChildren(context.Background(), "root", "tok", "")

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.False(t, Retryable(err))
}

func TestGoogleConnectionFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	_, err := c.ListChildren(context.Background(), "root", "tok", "")

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.True(t, Retryable(err))
}

func TestGoogleFolderMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/folder-1", r.URL.Path)
		fmt.Fprint(w, `{"id": "folder-1", "name": "Reports", "mimeType": "application/vnd.google-apps.folder"}`)
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	entry, err := c.FolderMetadata(context.Background(), "folder-1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Reports", entry.Name)
	assert.Equal(t, KindFolder, entry.Kind)
}

func TestGoogleDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/f1", r.URL.Path)
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, "file body")
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	reader, err := c.Download(context.Background(), "f1", "tok")
	require.NoError(t, err)
	defer reader.Close()

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "file body", string(body))
}

func TestGoogleDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"message": "File not found"}}`)
	}))
	defer srv.Close()

	c := NewGoogleClient(Options{BaseURL: srv.URL})
	_, err := c.Download(context.Background(), "nope", "tok")
	require.Error(t, err)

	var apiErr *ProviderAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestForProvider(t *testing.T) {
	lister, err := ForProvider("google", Options{})
	require.NoError(t, err)
	assert.IsType(t, &GoogleClient{}, lister)

	lister, err = ForProvider("microsoft", Options{})
	require.NoError(t, err)
	assert.IsType(t, &GraphClient{}, lister)

	_, err = ForProvider("dropbox", Options{})
	require.Error(t, err)
}
