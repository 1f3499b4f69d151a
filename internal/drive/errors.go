package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ProviderAPIError is a non-2xx response from a drive provider API.
type ProviderAPIError struct {
	Status  int
	Message string
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("provider API error: status %d: %s", e.Status, e.Message)
}

// TransientError is a network failure or timeout. Callers may retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ProtocolError is a malformed provider response body. Not retryable.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Retryable reports whether the error is worth retrying: transient
// network failures, rate limits and provider 5xx responses qualify.
// Cancellation of the caller's own context never does.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	// HTTP client timeouts wrap context.DeadlineExceeded, so the
	// transient case must win over the context sentinels.
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *ProviderAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}

	return false
}

// AuthFailure reports whether the error indicates an invalid or expired
// credential (401/403 from the provider).
func AuthFailure(err error) bool {
	var apiErr *ProviderAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}
