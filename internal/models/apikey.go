package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents a caller credential and its rate limits.
// The raw key is never stored; only its SHA-256 hash.
type APIKey struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name" validate:"required,max=100"`
	KeyHash           string     `json:"-"`
	KeyPrefix         string     `json:"key_prefix"`
	RequestsPerMinute int        `json:"requests_per_minute" validate:"gt=0"`
	RequestsPerHour   int        `json:"requests_per_hour" validate:"gt=0"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
}

const (
	// DefaultRequestsPerMinute is the per-minute limit applied to new keys.
	DefaultRequestsPerMinute = 60
	// DefaultRequestsPerHour is the per-hour limit applied to new keys.
	DefaultRequestsPerHour = 1000
)
