package gateway

import (
	"context"

	"github.com/benvon/apigate/internal/models"
)

// Router resolves the service segment of a proxy path to a backend.
type Router struct {
	registry ServiceRegistry
}

// NewRouter creates a router over a service registry.
func NewRouter(registry ServiceRegistry) *Router {
	return &Router{registry: registry}
}

// Route resolves a service name. Unknown names fail with
// ServiceNotFoundError, disabled services with ServiceInactiveError.
func (r *Router) Route(ctx context.Context, serviceName string) (*models.ServiceConfig, error) {
	svc, err := r.registry.Resolve(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, &ServiceNotFoundError{Service: serviceName}
	}
	if !svc.Active {
		return nil, &ServiceInactiveError{Service: serviceName}
	}
	return svc, nil
}
