package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	RedisURL         string
	ServerPort       string
	ProxyPrefix      string
	FrontendURL      string
	FloodLimitRate   string
	SensitiveHeaders []string
	EnableHSTS       bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		ProxyPrefix:      getEnv("PROXY_PREFIX", "/api"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		FloodLimitRate:   getEnv("FLOOD_LIMIT_RATE", "300-M"),
		SensitiveHeaders: getEnvList("GATEWAY_SENSITIVE_HEADERS"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if !strings.HasPrefix(cfg.ProxyPrefix, "/") {
		return nil, fmt.Errorf("PROXY_PREFIX must start with '/', got %q", cfg.ProxyPrefix)
	}
	cfg.ProxyPrefix = strings.TrimSuffix(cfg.ProxyPrefix, "/")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvList parses a comma-separated environment variable into a slice,
// trimming whitespace and dropping empty entries.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
