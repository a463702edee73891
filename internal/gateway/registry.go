package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/apigate/internal/models"
	"go.uber.org/zap"
)

// ServiceRegistry maps service names to their configuration. Resolve returns
// (nil, nil) when the name is unknown.
type ServiceRegistry interface {
	Resolve(ctx context.Context, name string) (*models.ServiceConfig, error)
	All(ctx context.Context) ([]*models.ServiceConfig, error)
}

// ServiceLister is the backing store the snapshot registry refreshes from.
type ServiceLister interface {
	List(ctx context.Context) ([]*models.ServiceConfig, error)
}

// SnapshotRegistry serves service lookups from an in-memory snapshot that is
// periodically refreshed from the backing store. Registry updates made
// out-of-band become visible on the next refresh; lookups never touch the
// database on the request path.
type SnapshotRegistry struct {
	lister   ServiceLister
	log      *zap.Logger
	interval time.Duration

	mu       sync.RWMutex
	services map[string]*models.ServiceConfig
}

// NewSnapshotRegistry creates a registry and loads the initial snapshot.
func NewSnapshotRegistry(ctx context.Context, lister ServiceLister, log *zap.Logger, refreshInterval time.Duration) (*SnapshotRegistry, error) {
	r := &SnapshotRegistry{
		lister:   lister,
		log:      log,
		interval: refreshInterval,
		services: make(map[string]*models.ServiceConfig),
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Start runs the refresh loop until ctx is cancelled.
func (r *SnapshotRegistry) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.log.Warn("failed_to_refresh_service_registry_keeping_previous_snapshot",
					zap.Error(err),
				)
			}
		}
	}
}

// Refresh replaces the snapshot with the current backing store contents.
func (r *SnapshotRegistry) Refresh(ctx context.Context) error {
	services, err := r.lister.List(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]*models.ServiceConfig, len(services))
	for _, svc := range services {
		next[svc.Name] = svc
	}

	r.mu.Lock()
	r.services = next
	r.mu.Unlock()

	r.log.Debug("service_registry_refreshed",
		zap.Int("services", len(next)),
	)
	return nil
}

// Resolve looks up a service by name in the current snapshot.
func (r *SnapshotRegistry) Resolve(_ context.Context, name string) (*models.ServiceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[name], nil
}

// All returns every service in the current snapshot.
func (r *SnapshotRegistry) All(_ context.Context) ([]*models.ServiceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.ServiceConfig, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out, nil
}
