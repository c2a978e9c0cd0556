package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/leomorozovskii/erc721-rent/internal/repository"
)

// APIKeyStore maps bearer tokens to caller identities. Only token hashes are stored.
type APIKeyStore struct {
	db *DB
}

// NewAPIKeyStore creates a new APIKeyStore
func NewAPIKeyStore(db *DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// AddKey registers token for identity, replacing any earlier registration of the same token
func (s *APIKeyStore) AddKey(ctx context.Context, token, identity, description string) error {
	if token == "" || identity == "" {
		return repository.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, identity, created_at, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key_hash) DO UPDATE SET
			identity = excluded.identity,
			description = excluded.description
	`, hashToken(token), identity, time.Now().UTC(), description)
	if err != nil {
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveIdentity returns the identity token acts as and records its use
func (s *APIKeyStore) ResolveIdentity(ctx context.Context, token string) (string, error) {
	hash := hashToken(token)
	var identity string
	err := s.db.QueryRowContext(ctx, `SELECT identity FROM api_keys WHERE key_hash = ?`, hash).Scan(&identity)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return identity, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
