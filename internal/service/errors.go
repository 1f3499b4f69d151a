// Package service implements the indexing pipeline: progress tracking,
// folder traversal, document persistence and run orchestration.
package service

import (
	"errors"

	"github.com/raphaelgruber/driveindex/internal/auth"
)

// Validation errors. Surfaced immediately; no run record is created.
var (
	ErrMissingUser     = errors.New("userId is required")
	ErrMissingFolder   = errors.New("folderId is required")
	ErrUnknownProvider = errors.New("unknown provider")
)

// ErrRunNotFound indicates the referenced run does not exist.
var ErrRunNotFound = errors.New("run not found")

// errStopped propagates a cooperative stop up the walker's recursion.
// It is internal: a stopped run is a valid terminal state, not an error.
var errStopped = errors.New("indexing stopped")

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingUser) ||
		errors.Is(err, ErrMissingFolder) ||
		errors.Is(err, ErrUnknownProvider)
}

// IsAuth reports whether err is a credential failure.
func IsAuth(err error) bool {
	return errors.Is(err, auth.ErrNoToken) || errors.Is(err, auth.ErrTokenExpired)
}
