package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/apigate/internal/models"
	"github.com/gorilla/mux"
)

type fakeRegistry struct {
	services map[string]*models.ServiceConfig
}

func (r *fakeRegistry) Resolve(_ context.Context, name string) (*models.ServiceConfig, error) {
	return r.services[name], nil
}

func (r *fakeRegistry) All(context.Context) ([]*models.ServiceConfig, error) {
	out := make([]*models.ServiceConfig, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out, nil
}

type fakeChecker struct {
	healthy map[string]bool
}

func (c *fakeChecker) CheckHealth(_ context.Context, svc *models.ServiceConfig) (bool, string) {
	if c.healthy[svc.Name] {
		return true, "Status: 200"
	}
	return false, "Status: 503"
}

func newHealthRouter() *mux.Router {
	registry := &fakeRegistry{services: map[string]*models.ServiceConfig{
		"user-service":  {Name: "user-service", BaseURL: "http://users.internal", Active: true},
		"order-service": {Name: "order-service", BaseURL: "http://orders.internal", Active: true},
	}}
	checker := &fakeChecker{healthy: map[string]bool{"user-service": true}}

	r := mux.NewRouter()
	NewHealthHandler(registry, checker).RegisterRoutes(r)
	return r
}

func TestHealthSelf(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newHealthRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("unexpected status %q", body["status"])
	}
	if body["service"] != "api-gateway" {
		t.Errorf("unexpected service %q", body["service"])
	}
	if body["timestamp"] == "" {
		t.Error("timestamp missing")
	}
}

func TestHealthService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantHealthy bool
	}{
		{"healthy service", "/health/user-service", http.StatusOK, true},
		{"unhealthy service", "/health/order-service", http.StatusOK, false},
		{"unknown service", "/health/ghost-service", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			newHealthRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body serviceHealth
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Healthy != tt.wantHealthy {
				t.Errorf("expected healthy=%v, got %v", tt.wantHealthy, body.Healthy)
			}
		})
	}
}

func TestHealthStatus(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newHealthRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Services []serviceHealth `json:"services"`
		Total    int             `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 2 || len(body.Services) != 2 {
		t.Fatalf("expected 2 services, got total=%d len=%d", body.Total, len(body.Services))
	}
	// Results come back sorted by service name.
	if body.Services[0].Service != "order-service" || body.Services[1].Service != "user-service" {
		t.Errorf("unexpected order: %q, %q", body.Services[0].Service, body.Services[1].Service)
	}
	if body.Services[0].Healthy || !body.Services[1].Healthy {
		t.Error("unexpected health verdicts")
	}
}
