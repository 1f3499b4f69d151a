// Package client provides a REST client for the driveindex server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/raphaelgruber/driveindex/internal/models"
)

// Client is a REST client for the driveindex server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses DRIVEINDEX_SERVER_URL env var or defaults to localhost:8486.
// Timeout can be configured via DRIVEINDEX_CLIENT_TIMEOUT env var (default 30s).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("DRIVEINDEX_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8486"
	}

	timeout := 30 * time.Second
	if t := os.Getenv("DRIVEINDEX_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the server's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// do sends one request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope apiError
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, envelope.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// StartIndexInput is the input for starting an indexing run. The CLI
// always uses batch mode and polls the run record for progress.
type StartIndexInput struct {
	UserID   string                  `json:"userId"`
	FolderID string                  `json:"folderId"`
	Provider string                  `json:"provider,omitempty"`
	Mode     string                  `json:"mode,omitempty"`
	Options  *models.IndexingOptions `json:"options,omitempty"`
}

// StartIndexResult is the start response.
type StartIndexResult struct {
	Success    bool   `json:"success"`
	ProgressID string `json:"progressId"`
}

// RunInfo is a run's state as reported by the server.
type RunInfo struct {
	ProgressID        string           `json:"progressId"`
	UserID            string           `json:"userId"`
	Provider          string           `json:"provider"`
	FolderID          string           `json:"folderId"`
	Status            string           `json:"status"`
	TotalFiles        int              `json:"totalFiles"`
	ProcessedFiles    int              `json:"processedFiles"`
	Depth             int              `json:"depth"`
	LastProcessedFile string           `json:"lastProcessedFile"`
	CurrentFolderID   string           `json:"currentFolderId,omitempty"`
	Error             *models.RunError `json:"error,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Terminal reports whether the run has reached a final status.
func (r *RunInfo) Terminal() bool {
	return models.RunStatus(r.Status).Terminal()
}

// Percent returns indexing completion as 0..1.
func (r *RunInfo) Percent() float64 {
	if r.TotalFiles <= 0 {
		return 0
	}
	p := float64(r.ProcessedFiles) / float64(r.TotalFiles)
	if p > 1 {
		p = 1
	}
	return p
}

// StartIndex starts a background indexing run.
func (c *Client) StartIndex(ctx context.Context, input StartIndexInput) (*StartIndexResult, error) {
	var result StartIndexResult
	if err := c.do(ctx, http.MethodPost, "/api/index", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StopIndex requests cooperative cancellation of a run.
func (c *Client) StopIndex(ctx context.Context, progressID string) (bool, error) {
	body := map[string]string{"progressId": progressID}
	var result struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/index/stop", body, &result); err != nil {
		return false, err
	}
	return result.Success, nil
}

// GetRun retrieves a run's current state.
func (c *Client) GetRun(ctx context.Context, progressID string) (*RunInfo, error) {
	var result RunInfo
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(progressID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRuns returns recent runs for a user, newest first.
func (c *Client) ListRuns(ctx context.Context, userID string, limit int) ([]RunInfo, error) {
	query := url.Values{"userId": {userID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var result struct {
		Runs []RunInfo `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/runs?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Runs, nil
}

// DocumentsPage is a page of indexed documents with the total count.
type DocumentsPage struct {
	Documents []models.IndexedDocument `json:"documents"`
	Count     int                      `json:"count"`
}

// ListDocuments returns indexed documents for a user.
func (c *Client) ListDocuments(ctx context.Context, userID string, limit int) (*DocumentsPage, error) {
	query := url.Values{"userId": {userID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var result DocumentsPage
	if err := c.do(ctx, http.MethodGet, "/api/documents?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
