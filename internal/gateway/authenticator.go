package gateway

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/apigate/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CredentialStore provides read access to API key records.
// Absence is signalled by an error wrapping sql.ErrNoRows.
type CredentialStore interface {
	LookupByKey(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// LastUsedRecorder updates key usage timestamps. Optional.
type LastUsedRecorder interface {
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}

// Authenticator validates the credential presented on a request.
type Authenticator struct {
	store CredentialStore
	log   *zap.Logger
	touch LastUsedRecorder
}

// NewAuthenticator creates a new authenticator backed by a credential store.
func NewAuthenticator(store CredentialStore, log *zap.Logger) *Authenticator {
	return &Authenticator{store: store, log: log}
}

// SetLastUsedRecorder enables asynchronous last-used tracking on successful auth.
func (a *Authenticator) SetLastUsedRecorder(rec LastUsedRecorder) {
	a.touch = rec
}

// credential extracts the API key from the X-API-Key header, falling back to
// the Authorization header with an optional Bearer prefix.
func credential(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return auth
}

// Authenticate resolves the request credential to an active API key record.
// It has no client-visible side effects; last-used tracking is fire-and-forget.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (*models.APIKey, error) {
	rawKey := credential(r)
	if rawKey == "" {
		return nil, &AuthError{Reason: MissingKey}
	}

	key, err := a.store.LookupByKey(ctx, rawKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &AuthError{Reason: InvalidKey}
		}
		return nil, err
	}
	if !key.Active {
		return nil, &AuthError{Reason: InactiveKey}
	}

	if a.touch != nil {
		go func(id uuid.UUID) {
			touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.touch.TouchLastUsed(touchCtx, id); err != nil {
				a.log.Warn("failed_to_update_key_last_used",
					zap.String("key_id", id.String()),
					zap.Error(err),
				)
			}
		}(key.ID)
	}

	return key, nil
}
