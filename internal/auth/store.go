package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raphaelgruber/driveindex/internal/models"
)

// TokenStore is the piece of the database layer the provider needs.
type TokenStore interface {
	GetToken(ctx context.Context, userID string, provider models.ProviderType) (*models.StoredToken, error)
}

// StoreProvider reads encrypted OAuth tokens from the store and
// decrypts them. Tokens are AES-256-CBC encrypted by the credential
// service with a key derived from a shared secret; the stored payload
// is a JSON envelope carrying a hex IV and base64 ciphertext.
type StoreProvider struct {
	store TokenStore
	key   []byte
}

// NewStoreProvider creates a provider over the given token store.
func NewStoreProvider(store TokenStore, secret string) *StoreProvider {
	return &StoreProvider{
		store: store,
		key:   deriveKey(secret),
	}
}

// AccessToken fetches, validates and decrypts the stored token.
func (p *StoreProvider) AccessToken(ctx context.Context, userID string, provider models.ProviderType) (Credentials, error) {
	stored, err := p.store.GetToken(ctx, userID, provider)
	if err != nil {
		return Credentials{}, fmt.Errorf("lookup token: %w", err)
	}
	if stored == nil {
		return Credentials{}, fmt.Errorf("%w: user %s provider %s", ErrNoToken, userID, provider)
	}
	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return Credentials{}, fmt.Errorf("%w: expired at %s", ErrTokenExpired, stored.ExpiresAt.Format(time.RFC3339))
	}

	token, err := p.decrypt(stored.AccessToken)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypt token: %w", err)
	}
	return Credentials{AccessToken: token, ExpiresAt: stored.ExpiresAt}, nil
}

// encryptedEnvelope is the stored ciphertext format.
type encryptedEnvelope struct {
	IV   string `json:"iv"`   // hex
	Data string `json:"data"` // base64
}

func (p *StoreProvider) decrypt(payload string) (string, error) {
	var envelope encryptedEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return "", fmt.Errorf("parse token envelope: %w", err)
	}

	iv, err := hex.DecodeString(envelope.IV)
	if err != nil {
		return "", fmt.Errorf("decode IV: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("bad IV length: %d", len(iv))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Data)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("bad ciphertext length: %d", len(ciphertext))
	}

	block, err := aes.NewCipher(p.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	return stripPadding(plain)
}

// stripPadding removes PKCS#7 padding.
func stripPadding(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty plaintext")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return "", fmt.Errorf("bad padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return "", fmt.Errorf("bad padding")
		}
	}
	return string(data[:len(data)-pad]), nil
}

// deriveKey matches the credential service's key derivation: the
// base64 of the secret's sha256, truncated to 32 bytes and used as raw
// key material.
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	return []byte(encoded[:32])
}
