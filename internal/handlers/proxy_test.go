package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/apigate/internal/gateway"
	"github.com/benvon/apigate/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type staticCredentialStore struct {
	key *models.APIKey
}

func (s *staticCredentialStore) LookupByKey(_ context.Context, rawKey string) (*models.APIKey, error) {
	if rawKey != "good-key" {
		return nil, fmt.Errorf("lookup api key: %w", sql.ErrNoRows)
	}
	return s.key, nil
}

type staticLister struct {
	services []*models.ServiceConfig
}

func (l *staticLister) List(context.Context) ([]*models.ServiceConfig, error) {
	return l.services, nil
}

type discardRecorder struct{}

func (discardRecorder) Record(*models.RequestLogEntry) {}

// newProxyRouter wires a full pipeline behind the proxy routes, forwarding to
// the given backend.
func newProxyRouter(t *testing.T, backendURL, prefix string) *mux.Router {
	t.Helper()

	log := zap.NewNop()
	key := &models.APIKey{
		ID:                uuid.New(),
		Name:              "test",
		RequestsPerMinute: 1000,
		RequestsPerHour:   100000,
		Active:            true,
	}
	lister := &staticLister{services: []*models.ServiceConfig{
		{Name: "user-service", BaseURL: backendURL, TimeoutSeconds: 5, Active: true},
	}}
	reg, err := gateway.NewSnapshotRegistry(context.Background(), lister, log, 0)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	pipeline := gateway.NewPipeline(
		gateway.NewAuthenticator(&staticCredentialStore{key: key}, log),
		gateway.NewRateLimiter(gateway.NewMemoryCounterStore(), log),
		gateway.NewRouter(reg),
		gateway.NewForwarder(nil, log),
		discardRecorder{},
		log,
	)

	r := mux.NewRouter()
	NewProxyHandler(pipeline).RegisterRoutes(r, prefix)
	return r
}

func TestProxyPathParsing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		wantPath string
		wantRawQ string
	}{
		{"single segment", "/api/user-service/users", "/users", ""},
		{"nested segments", "/api/user-service/users/42/orders", "/users/42/orders", ""},
		{"query preserved", "/api/user-service/users?page=2&sort=name", "/users", "page=2&sort=name"},
		{"service root", "/api/user-service", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotPath, gotRawQ string
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotRawQ = r.URL.RawQuery
				w.WriteHeader(http.StatusOK)
			}))
			defer backend.Close()

			router := newProxyRouter(t, backend.URL, "/api")
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r.Header.Set("X-API-Key", "good-key")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
			}
			// The backend normalizes an empty path to "/".
			wantPath := tt.wantPath
			if wantPath == "" {
				wantPath = "/"
			}
			if gotPath != wantPath {
				t.Errorf("backend path %q, want %q", gotPath, wantPath)
			}
			if gotRawQ != tt.wantRawQ {
				t.Errorf("backend query %q, want %q", gotRawQ, tt.wantRawQ)
			}
		})
	}
}

func TestProxyMethodsPassThrough(t *testing.T) {
	t.Parallel()

	var gotMethod string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	router := newProxyRouter(t, backend.URL, "/api")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		r := httptest.NewRequest(method, "/api/user-service/users", nil)
		r.Header.Set("X-API-Key", "good-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		if w.Code != http.StatusNoContent {
			t.Errorf("%s: expected 204, got %d", method, w.Code)
		}
		if gotMethod != method {
			t.Errorf("backend saw %s, want %s", gotMethod, method)
		}
	}
}

func TestProxyOutsidePrefixNotRouted(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be reached outside the proxy prefix")
	}))
	defer backend.Close()

	router := newProxyRouter(t, backend.URL, "/api")
	r := httptest.NewRequest(http.MethodGet, "/other/user-service/users", nil)
	r.Header.Set("X-API-Key", "good-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 outside prefix, got %d", w.Code)
	}
}

func TestProxyRequiresCredential(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be reached without a credential")
	}))
	defer backend.Close()

	router := newProxyRouter(t, backend.URL, "/api")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user-service/users", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
