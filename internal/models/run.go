// Package models defines data structures for the driveindex document store.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RunStatus is the lifecycle state of an indexing run.
type RunStatus string

const (
	RunStatusInitializing RunStatus = "initializing"
	RunStatusRunning      RunStatus = "running"
	RunStatusCompleted    RunStatus = "completed"
	RunStatusError        RunStatus = "error"
	RunStatusStopped      RunStatus = "stopped"
)

// statusRank orders run states for monotonic transition checks.
// Terminal states share the highest rank; moving between them is invalid.
var statusRank = map[RunStatus]int{
	RunStatusInitializing: 0,
	RunStatusRunning:      1,
	RunStatusCompleted:    2,
	RunStatusError:        2,
	RunStatusStopped:      2,
}

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusError || s == RunStatusStopped
}

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition. Transitions never move backward and terminal
// states never change.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if s.Terminal() {
		return false
	}
	return to > from || (to == from && s == next)
}

// RunError is the structured error recorded against a failed run or branch.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// IndexingRun is the persisted progress record for one indexing run.
// Runs are never deleted by the pipeline; they are retained for history.
type IndexingRun struct {
	ID                surrealmodels.RecordID `json:"id"`
	UserID            string                 `json:"user_id"`
	Provider          ProviderType           `json:"provider"`
	RootFolderID      string                 `json:"root_folder_id"`
	CurrentFolderID   string                 `json:"current_folder_id,omitempty"`
	Status            RunStatus              `json:"status"`
	TotalFiles        int                    `json:"total_files"`
	ProcessedFiles    int                    `json:"processed_files"`
	Depth             int                    `json:"depth"`
	LastProcessedFile string                 `json:"last_processed_file,omitempty"`
	Error             *RunError              `json:"error,omitempty"`
	Settings          RunSettings            `json:"settings"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// RunSettings is the options snapshot stored alongside a run record.
type RunSettings struct {
	Recursive      bool     `json:"recursive"`
	MaxDepth       int      `json:"max_depth"`
	BatchSize      int      `json:"batch_size"`
	FileTypes      []string `json:"file_types,omitempty"`
	ExcludeFolders []string `json:"exclude_folders,omitempty"`
}
