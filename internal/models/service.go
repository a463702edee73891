package models

import "time"

// ServiceConfig describes a downstream service the gateway can forward to.
type ServiceConfig struct {
	Name            string    `json:"name" yaml:"name" validate:"required,max=100"`
	BaseURL         string    `json:"base_url" yaml:"base_url" validate:"required,url"`
	HealthCheckPath string    `json:"health_check_path" yaml:"health_check_path"`
	TimeoutSeconds  int       `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
	Active          bool      `json:"active" yaml:"active"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

const (
	// DefaultServiceTimeout bounds a single forwarding attempt.
	DefaultServiceTimeout = 30 * time.Second
	// DefaultHealthCheckPath is used when a service does not configure one.
	DefaultHealthCheckPath = "/health"
)

// Timeout returns the configured forwarding timeout, falling back to the default.
func (s *ServiceConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return DefaultServiceTimeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// HealthPath returns the configured health check path, falling back to the default.
func (s *ServiceConfig) HealthPath() string {
	if s.HealthCheckPath == "" {
		return DefaultHealthCheckPath
	}
	return s.HealthCheckPath
}
