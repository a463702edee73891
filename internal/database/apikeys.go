package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/benvon/apigate/internal/models"
	"github.com/google/uuid"
)

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashKey returns the hex-encoded SHA-256 digest of a raw API key.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateKey produces a cryptographically random 32-character API key.
func GenerateKey() (string, error) {
	out := make([]byte, 32)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(apiKeyAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate api key: %w", err)
		}
		out[i] = apiKeyAlphabet[n.Int64()]
	}
	return string(out), nil
}

// LookupByKey retrieves the key record matching a raw credential.
// Returns sql.ErrNoRows (wrapped) when no record matches.
func (r *APIKeyRepository) LookupByKey(ctx context.Context, rawKey string) (*models.APIKey, error) {
	key := &models.APIKey{}
	query := `
		SELECT id, name, key_hash, key_prefix, requests_per_minute, requests_per_hour,
		       active, created_at, updated_at, last_used_at
		FROM api_keys
		WHERE key_hash = $1
	`

	err := r.db.QueryRowContext(ctx, query, HashKey(rawKey)).Scan(
		&key.ID,
		&key.Name,
		&key.KeyHash,
		&key.KeyPrefix,
		&key.RequestsPerMinute,
		&key.RequestsPerHour,
		&key.Active,
		&key.CreatedAt,
		&key.UpdatedAt,
		&key.LastUsedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	return key, nil
}

// Create stores a new API key record. The raw key is hashed before storage.
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey, rawKey string) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.RequestsPerMinute <= 0 {
		key.RequestsPerMinute = models.DefaultRequestsPerMinute
	}
	if key.RequestsPerHour <= 0 {
		key.RequestsPerHour = models.DefaultRequestsPerHour
	}
	key.KeyHash = HashKey(rawKey)
	if len(rawKey) >= 8 {
		key.KeyPrefix = rawKey[:8]
	} else {
		key.KeyPrefix = rawKey
	}

	query := `
		INSERT INTO api_keys (id, name, key_hash, key_prefix, requests_per_minute,
		                      requests_per_hour, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		key.ID,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		key.RequestsPerMinute,
		key.RequestsPerHour,
		true,
		now,
		now,
	).Scan(&key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	key.Active = true

	return nil
}

// List returns all API key records, newest first.
func (r *APIKeyRepository) List(ctx context.Context) ([]*models.APIKey, error) {
	query := `
		SELECT id, name, key_hash, key_prefix, requests_per_minute, requests_per_hour,
		       active, created_at, updated_at, last_used_at
		FROM api_keys
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []*models.APIKey
	for rows.Next() {
		key := &models.APIKey{}
		if err := rows.Scan(
			&key.ID,
			&key.Name,
			&key.KeyHash,
			&key.KeyPrefix,
			&key.RequestsPerMinute,
			&key.RequestsPerHour,
			&key.Active,
			&key.CreatedAt,
			&key.UpdatedAt,
			&key.LastUsedAt,
		); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	return keys, nil
}

// SetActive flips the active flag on a key.
func (r *APIKeyRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET active = $1, updated_at = $2 WHERE id = $3
	`, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set api key active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set api key active: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set api key active: %w", sql.ErrNoRows)
	}
	return nil
}

// TouchLastUsed updates the last_used_at timestamp for a key.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = $1 WHERE id = $2
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("touch api key last used: %w", err)
	}
	return nil
}
