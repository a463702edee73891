package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/apigate/internal/models"
	"go.uber.org/zap"
)

func TestTargetURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		rest    string
		want    string
	}{
		{"simple join", "http://users.internal/users", "42", "http://users.internal/users/42"},
		{"empty rest", "http://users.internal", "", "http://users.internal"},
		{"trailing slash on base", "http://users.internal/", "users", "http://users.internal/users"},
		{"leading slash on rest", "http://users.internal", "/users/42", "http://users.internal/users/42"},
		{"nested rest", "http://users.internal", "users/42/orders", "http://users.internal/users/42/orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TargetURL(tt.baseURL, tt.rest); got != tt.want {
				t.Errorf("TargetURL(%q, %q) = %q, want %q", tt.baseURL, tt.rest, got, tt.want)
			}
		})
	}
}

func testService(baseURL string) *models.ServiceConfig {
	return &models.ServiceConfig{
		Name:           "user-service",
		BaseURL:        baseURL,
		TimeoutSeconds: 5,
		Active:         true,
	}
}

func TestForwardRelaysRequestAndResponse(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	var seenBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		body, _ := io.ReadAll(r.Body)
		seenBody = string(body)
		w.Header().Set("X-Backend", "user-service")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer backend.Close()

	f := NewForwarder([]string{"X-Internal-Secret"}, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/user-service/users?verbose=1", strings.NewReader(`{"name":"ada"}`))
	r.Header.Set("X-API-Key", "secret-key")
	r.Header.Set("Authorization", "Bearer secret-token")
	r.Header.Set("Cookie", "session=abc")
	r.Header.Set("X-Internal-Secret", "hidden")
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Request-ID", "req-123")
	r.RemoteAddr = "203.0.113.9:54321"
	w := httptest.NewRecorder()

	result, err := f.Forward(w, r, testService(backend.URL), "users")
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	if result.StatusCode != http.StatusCreated {
		t.Errorf("expected status 201, got %d", result.StatusCode)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("expected relayed status 201, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"id":42}` {
		t.Errorf("unexpected relayed body %q", got)
	}
	if got := w.Header().Get("X-Backend"); got != "user-service" {
		t.Errorf("response header not relayed, got %q", got)
	}
	if got := w.Header().Get("Connection"); got != "" {
		t.Errorf("hop-by-hop response header relayed: %q", got)
	}

	if seen == nil {
		t.Fatal("backend never saw the request")
	}
	if seen.URL.Path != "/users" {
		t.Errorf("expected backend path /users, got %q", seen.URL.Path)
	}
	if seen.URL.RawQuery != "verbose=1" {
		t.Errorf("query string not preserved, got %q", seen.URL.RawQuery)
	}
	if seenBody != `{"name":"ada"}` {
		t.Errorf("request body not relayed, got %q", seenBody)
	}
	for _, h := range []string{"X-API-Key", "Authorization", "Cookie", "X-Internal-Secret"} {
		if got := seen.Header.Get(h); got != "" {
			t.Errorf("sensitive header %s forwarded with value %q", h, got)
		}
	}
	if got := seen.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("benign header not forwarded, got %q", got)
	}
	if got := seen.Header.Get("X-Request-ID"); got != "req-123" {
		t.Errorf("benign header not forwarded, got %q", got)
	}
	if got := seen.Header.Get("X-Forwarded-For"); got != "203.0.113.9" {
		t.Errorf("expected X-Forwarded-For 203.0.113.9, got %q", got)
	}
	if got := seen.Header.Get("X-Forwarded-Proto"); got != "http" {
		t.Errorf("expected X-Forwarded-Proto http, got %q", got)
	}
	if got := seen.Header.Get("X-Forwarded-Host"); got == "" {
		t.Error("X-Forwarded-Host not set")
	}
}

func TestForwardDoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://elsewhere.internal/moved", http.StatusFound)
	}))
	defer backend.Close()

	f := NewForwarder(nil, zap.NewNop())
	r := httptest.NewRequest(http.MethodGet, "/api/user-service/users", nil)
	w := httptest.NewRecorder()

	result, err := f.Forward(w, r, testService(backend.URL), "users")
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if result.StatusCode != http.StatusFound {
		t.Errorf("redirect should be relayed, got status %d", result.StatusCode)
	}
	if got := w.Header().Get("Location"); got != "http://elsewhere.internal/moved" {
		t.Errorf("Location header not relayed, got %q", got)
	}
}

func TestForwardTimeout(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer backend.Close()

	svc := testService(backend.URL)
	svc.TimeoutSeconds = 1

	f := NewForwarder(nil, zap.NewNop())
	r := httptest.NewRequest(http.MethodGet, "/api/user-service/slow", nil)
	w := httptest.NewRecorder()

	_, err := f.Forward(w, r, svc, "slow")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Kind != Timeout {
		t.Errorf("expected Timeout, got %v", upstreamErr.Kind)
	}
}

func TestForwardConnectionRefused(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backendURL := backend.URL
	backend.Close()

	f := NewForwarder(nil, zap.NewNop())
	r := httptest.NewRequest(http.MethodGet, "/api/user-service/users", nil)
	w := httptest.NewRecorder()

	_, err := f.Forward(w, r, testService(backendURL), "users")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.Kind != ConnectionRefused {
		t.Errorf("expected ConnectionRefused, got %v", upstreamErr.Kind)
	}
}

func TestCheckHealth(t *testing.T) {
	t.Parallel()

	var seenPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		if r.URL.Path == "/status" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	f := NewForwarder(nil, zap.NewNop())

	svc := testService(backend.URL)
	svc.HealthCheckPath = "/status"
	healthy, message := f.CheckHealth(context.Background(), svc)
	if !healthy {
		t.Errorf("expected healthy, got %q", message)
	}
	if seenPath != "/status" {
		t.Errorf("expected health probe at /status, got %q", seenPath)
	}
	if message != "Status: 200" {
		t.Errorf("unexpected message %q", message)
	}

	svc.HealthCheckPath = "/broken"
	healthy, message = f.CheckHealth(context.Background(), svc)
	if healthy {
		t.Error("expected unhealthy on 500")
	}
	if message != "Status: 500" {
		t.Errorf("unexpected message %q", message)
	}
}

func TestCheckHealthUnreachable(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backendURL := backend.URL
	backend.Close()

	f := NewForwarder(nil, zap.NewNop())
	healthy, message := f.CheckHealth(context.Background(), testService(backendURL))
	if healthy {
		t.Error("expected unhealthy for unreachable backend")
	}
	if message == "" {
		t.Error("expected an error message")
	}
}
