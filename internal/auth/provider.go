// Package auth supplies access tokens for drive providers. The token
// exchange/refresh flows live in a separate credential service; this
// package only reads what that service stored.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/raphaelgruber/driveindex/internal/models"
)

// Sentinel errors. Both mean the caller cannot proceed without user
// re-authorization; they map onto the orchestrator's auth failure path.
var (
	// ErrNoToken indicates no valid stored token for the user/provider.
	ErrNoToken = errors.New("no valid token for user")

	// ErrTokenExpired indicates the stored token is past expires_at and
	// cannot be used. Refresh is the credential service's job.
	ErrTokenExpired = errors.New("stored token expired")
)

// Credentials is a decrypted, ready-to-use access token.
type Credentials struct {
	AccessToken string
	ExpiresAt   time.Time
}

// CredentialProvider supplies a valid access token for a user and
// provider.
type CredentialProvider interface {
	AccessToken(ctx context.Context, userID string, provider models.ProviderType) (Credentials, error)
}

// StaticProvider returns fixed credentials. Testing only.
type StaticProvider struct {
	Token string
	Err   error
}

func (p *StaticProvider) AccessToken(ctx context.Context, userID string, provider models.ProviderType) (Credentials, error) {
	if p.Err != nil {
		return Credentials{}, p.Err
	}
	return Credentials{
		AccessToken: p.Token,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}
