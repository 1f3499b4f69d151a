package db

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/driveindex/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// GetToken fetches the valid stored OAuth token for a user and
// provider. Returns nil if no valid token exists. The token payload is
// still encrypted at this point; decryption is the auth package's job.
func (c *Client) GetToken(ctx context.Context, userID string, provider models.ProviderType) (*models.StoredToken, error) {
	results, err := surrealdb.Query[[]models.StoredToken](ctx, c.db, `
		SELECT * FROM oauth_token
		WHERE user_id = $user_id
			AND provider = $provider
			AND is_valid = true
		LIMIT 1
	`, map[string]any{
		"user_id":  userID,
		"provider": string(provider),
	})
	if err != nil {
		return nil, fmt.Errorf("get token: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}
