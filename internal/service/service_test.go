package service

// Shared in-memory fakes for the pipeline tests. They satisfy the same
// interfaces as the SurrealDB-backed client without needing a database.

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/raphaelgruber/driveindex/internal/drive"
	"github.com/raphaelgruber/driveindex/internal/models"
)

// memRunStore is an in-memory RunStore.
type memRunStore struct {
	mu           sync.Mutex
	runs         map[string]models.IndexingRun
	statusWrites []models.RunStatus
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: make(map[string]models.IndexingRun)}
}

func (s *memRunStore) CreateRun(ctx context.Context, id string, run models.IndexingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = run
	return nil
}

func (s *memRunStore) GetRun(ctx context.Context, id string) (*models.IndexingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (s *memRunStore) ListRuns(ctx context.Context, userID string, limit int) ([]models.IndexingRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.IndexingRun
	for _, run := range s.runs {
		if run.UserID == userID {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memRunStore) UpdateRunFields(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	if v, ok := fields["current_folder_id"].(string); ok {
		run.CurrentFolderID = v
	}
	if v, ok := fields["depth"].(int); ok {
		run.Depth = v
	}
	if v, ok := fields["error"].(models.RunError); ok {
		run.Error = &v
	}
	run.UpdatedAt = time.Now()
	s.runs[id] = run
	return nil
}

func (s *memRunStore) AddRunProgress(ctx context.Context, id string, processedDelta, totalDelta int, lastFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	run.ProcessedFiles += processedDelta
	run.TotalFiles += totalDelta
	if lastFile != "" {
		run.LastProcessedFile = lastFile
	}
	run.UpdatedAt = time.Now()
	s.runs[id] = run
	return nil
}

func (s *memRunStore) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, allowedFrom []models.RunStatus, runErr *models.RunError) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, from := range allowedFrom {
		if run.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	run.Status = status
	if runErr != nil {
		run.Error = runErr
	}
	run.UpdatedAt = time.Now()
	s.runs[id] = run
	s.statusWrites = append(s.statusWrites, status)
	return true, nil
}

func (s *memRunStore) stored(id string) models.IndexingRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// memDocStore is an in-memory DocumentStore keyed the same way as the
// document_identity unique index.
type memDocStore struct {
	mu      sync.Mutex
	docs    map[string]models.IndexedDocument
	folders []models.DriveFolder
	upserts int
	failFor map[string]error
}

func newMemDocStore() *memDocStore {
	return &memDocStore{
		docs:    make(map[string]models.IndexedDocument),
		failFor: make(map[string]error),
	}
}

func docKey(userID string, provider models.ProviderType, externalID string) string {
	return userID + "|" + string(provider) + "|" + externalID
}

func (s *memDocStore) UpsertDocument(ctx context.Context, doc models.IndexedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[doc.ExternalID]; ok {
		return err
	}
	s.upserts++
	s.docs[docKey(doc.UserID, doc.Provider, doc.ExternalID)] = doc
	return nil
}

func (s *memDocStore) UpsertFolder(ctx context.Context, folder models.DriveFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders = append(s.folders, folder)
	return nil
}

func (s *memDocStore) get(userID string, provider models.ProviderType, externalID string) (models.IndexedDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docKey(userID, provider, externalID)]
	return doc, ok
}

func (s *memDocStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// fakeLister serves a fixed folder tree with client-side pagination.
type fakeLister struct {
	mu       sync.Mutex
	tree     map[string][]drive.RemoteEntry
	names    map[string]string
	pageSize int
	failFor  map[string]error
	delay    time.Duration
	calls    int
}

func newFakeLister(pageSize int) *fakeLister {
	return &fakeLister{
		tree:     make(map[string][]drive.RemoteEntry),
		names:    make(map[string]string),
		pageSize: pageSize,
		failFor:  make(map[string]error),
	}
}

func (l *fakeLister) add(folderID string, entries ...drive.RemoteEntry) {
	l.tree[folderID] = append(l.tree[folderID], entries...)
	for _, e := range entries {
		l.names[e.ID] = e.Name
	}
}

func (l *fakeLister) ListChildren(ctx context.Context, folderID, accessToken, pageToken string) (drive.Page, error) {
	l.mu.Lock()
	l.calls++
	delay := l.delay
	err := l.failFor[folderID]
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return drive.Page{}, ctx.Err()
		}
	}
	if err != nil {
		return drive.Page{}, err
	}

	entries := l.tree[folderID]
	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}
	if offset >= len(entries) {
		return drive.Page{}, nil
	}

	end := offset + l.pageSize
	next := ""
	if end < len(entries) {
		next = strconv.Itoa(end)
	} else {
		end = len(entries)
	}
	return drive.Page{Entries: entries[offset:end], NextPageToken: next}, nil
}

func (l *fakeLister) FolderMetadata(ctx context.Context, folderID, accessToken string) (drive.RemoteEntry, error) {
	l.mu.Lock()
	err := l.failFor["meta:"+folderID]
	l.mu.Unlock()
	if err != nil {
		return drive.RemoteEntry{}, err
	}
	name := l.names[folderID]
	if name == "" {
		name = folderID
	}
	return drive.RemoteEntry{ID: folderID, Name: name, Kind: drive.KindFolder}, nil
}

func (l *fakeLister) listCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func testFile(id, name, mime string) drive.RemoteEntry {
	return drive.RemoteEntry{
		ID:           id,
		Name:         name,
		Kind:         drive.KindFile,
		MimeType:     mime,
		Size:         64,
		ModifiedTime: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testFolder(id, name string) drive.RemoteEntry {
	return drive.RemoteEntry{ID: id, Name: name, Kind: drive.KindFolder}
}
