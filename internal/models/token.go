package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// StoredToken is an OAuth token record as written by the credential
// service. AccessToken holds the encrypted payload (JSON envelope with
// hex IV and base64 ciphertext), not the bare token.
type StoredToken struct {
	ID          surrealmodels.RecordID `json:"id"`
	UserID      string                 `json:"user_id"`
	Provider    ProviderType           `json:"provider"`
	AccessToken string                 `json:"access_token"`
	IsValid     bool                   `json:"is_valid"`
	ExpiresAt   time.Time              `json:"expires_at"`
}
