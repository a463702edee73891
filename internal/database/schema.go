package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		key_prefix TEXT NOT NULL,
		requests_per_minute INTEGER NOT NULL DEFAULT 60,
		requests_per_hour INTEGER NOT NULL DEFAULT 1000,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		name TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		health_check_path TEXT NOT NULL DEFAULT '/health',
		timeout_seconds INTEGER NOT NULL DEFAULT 30,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS request_logs (
		id UUID PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		key_id UUID,
		client_ip TEXT NOT NULL,
		user_agent TEXT,
		service_name TEXT,
		downstream_url TEXT,
		status_code INTEGER NOT NULL,
		latency_ms DOUBLE PRECISION NOT NULL,
		error_message TEXT,
		is_error BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_key_id ON request_logs (key_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_service ON request_logs (service_name)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs (status_code)`,
}
