package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/apigate/internal/models"
)

// ServiceRepository handles downstream service configuration in the database.
type ServiceRepository struct {
	db *DB
}

// NewServiceRepository creates a new service repository
func NewServiceRepository(db *DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// GetByName retrieves a service config by its unique name.
// Returns sql.ErrNoRows (wrapped) when no record matches.
func (r *ServiceRepository) GetByName(ctx context.Context, name string) (*models.ServiceConfig, error) {
	svc := &models.ServiceConfig{}
	query := `
		SELECT name, base_url, health_check_path, timeout_seconds, active, created_at, updated_at
		FROM services
		WHERE name = $1
	`

	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&svc.Name,
		&svc.BaseURL,
		&svc.HealthCheckPath,
		&svc.TimeoutSeconds,
		&svc.Active,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get service %q: %w", name, err)
	}

	return svc, nil
}

// List returns all service configs ordered by name.
func (r *ServiceRepository) List(ctx context.Context) ([]*models.ServiceConfig, error) {
	query := `
		SELECT name, base_url, health_check_path, timeout_seconds, active, created_at, updated_at
		FROM services
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var services []*models.ServiceConfig
	for rows.Next() {
		svc := &models.ServiceConfig{}
		if err := rows.Scan(
			&svc.Name,
			&svc.BaseURL,
			&svc.HealthCheckPath,
			&svc.TimeoutSeconds,
			&svc.Active,
			&svc.CreatedAt,
			&svc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	return services, nil
}

// Upsert inserts or updates a service config keyed by name.
func (r *ServiceRepository) Upsert(ctx context.Context, svc *models.ServiceConfig) error {
	if svc.HealthCheckPath == "" {
		svc.HealthCheckPath = models.DefaultHealthCheckPath
	}
	if svc.TimeoutSeconds <= 0 {
		svc.TimeoutSeconds = int(models.DefaultServiceTimeout.Seconds())
	}

	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (name, base_url, health_check_path, timeout_seconds, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			base_url = EXCLUDED.base_url,
			health_check_path = EXCLUDED.health_check_path,
			timeout_seconds = EXCLUDED.timeout_seconds,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`, svc.Name, svc.BaseURL, svc.HealthCheckPath, svc.TimeoutSeconds, svc.Active, now, now)
	if err != nil {
		return fmt.Errorf("upsert service %q: %w", svc.Name, err)
	}
	return nil
}

// Delete removes a service config by name.
func (r *ServiceRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete service %q: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete service %q: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete service %q: %w", name, sql.ErrNoRows)
	}
	return nil
}
