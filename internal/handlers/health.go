package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/benvon/apigate/internal/gateway"
	"github.com/benvon/apigate/internal/models"
	"github.com/gorilla/mux"
)

// HealthChecker probes a downstream service's health endpoint.
type HealthChecker interface {
	CheckHealth(ctx context.Context, svc *models.ServiceConfig) (bool, string)
}

// HealthHandler serves the gateway self-check and downstream health probes.
type HealthHandler struct {
	registry gateway.ServiceRegistry
	checker  HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry gateway.ServiceRegistry, checker HealthChecker) *HealthHandler {
	return &HealthHandler{registry: registry, checker: checker}
}

// RegisterRoutes registers the health endpoints.
func (h *HealthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.Self).Methods("GET")
	r.HandleFunc("/health/{service}", h.Service).Methods("GET")
	r.HandleFunc("/services/status", h.Status).Methods("GET")
}

// Self answers the gateway's own health check. Static OK by design: it
// reports that the gateway process is serving, not backend state.
func (h *HealthHandler) Self(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "api-gateway",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type serviceHealth struct {
	Service string `json:"service"`
	BaseURL string `json:"base_url,omitempty"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// Service forwards a GET to one service's configured health path and relays
// the verdict.
func (h *HealthHandler) Service(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["service"]

	svc, err := h.registry.Resolve(r.Context(), name)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal server error", "Failed to resolve service")
		return
	}
	if svc == nil {
		respondJSONError(w, http.StatusNotFound, "Service not found", "Service \""+name+"\" is not configured")
		return
	}

	healthy, message := h.checker.CheckHealth(r.Context(), svc)
	respondJSON(w, http.StatusOK, serviceHealth{
		Service: name,
		Healthy: healthy,
		Message: message,
	})
}

// Status probes every configured service concurrently and reports the
// aggregate.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	services, err := h.registry.All(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal server error", "Failed to list services")
		return
	}

	results := make([]serviceHealth, len(services))
	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc *models.ServiceConfig) {
			defer wg.Done()
			healthy, message := h.checker.CheckHealth(r.Context(), svc)
			results[i] = serviceHealth{
				Service: svc.Name,
				BaseURL: svc.BaseURL,
				Healthy: healthy,
				Message: message,
			}
		}(i, svc)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Service < results[j].Service })

	respondJSON(w, http.StatusOK, map[string]any{
		"services": results,
		"total":    len(results),
	})
}
