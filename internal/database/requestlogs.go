package database

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/apigate/internal/models"
	"github.com/google/uuid"
)

// RequestLogRepository persists and queries gateway audit entries.
type RequestLogRepository struct {
	db *DB
}

// NewRequestLogRepository creates a new request log repository
func NewRequestLogRepository(db *DB) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// Append inserts one audit entry.
func (r *RequestLogRepository) Append(ctx context.Context, entry *models.RequestLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO request_logs (id, timestamp, method, path, key_id, client_ip, user_agent,
		                          service_name, downstream_url, status_code, latency_ms,
		                          error_message, is_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		entry.ID,
		entry.Timestamp,
		entry.Method,
		entry.Path,
		entry.KeyID,
		entry.ClientIP,
		entry.UserAgent,
		entry.ServiceName,
		entry.DownstreamURL,
		entry.StatusCode,
		entry.LatencyMs,
		entry.ErrorMessage,
		entry.IsError,
	)
	if err != nil {
		return fmt.Errorf("append request log: %w", err)
	}
	return nil
}

// Query returns a filtered page of audit entries, newest first, plus the total match count.
func (r *RequestLogRepository) Query(ctx context.Context, filter models.LogFilter) ([]*models.RequestLogEntry, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if filter.ServiceName != "" {
		args = append(args, filter.ServiceName)
		where += fmt.Sprintf(" AND service_name = $%d", len(args))
	}
	if filter.StatusCode != 0 {
		args = append(args, filter.StatusCode)
		where += fmt.Sprintf(" AND status_code = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_logs "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count request logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, timestamp, method, path, key_id, client_ip, user_agent,
		       service_name, downstream_url, status_code, latency_ms, error_message, is_error
		FROM request_logs %s
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query request logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.RequestLogEntry
	for rows.Next() {
		entry := &models.RequestLogEntry{}
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.Method,
			&entry.Path,
			&entry.KeyID,
			&entry.ClientIP,
			&entry.UserAgent,
			&entry.ServiceName,
			&entry.DownstreamURL,
			&entry.StatusCode,
			&entry.LatencyMs,
			&entry.ErrorMessage,
			&entry.IsError,
		); err != nil {
			return nil, 0, fmt.Errorf("scan request log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query request logs: %w", err)
	}

	return entries, total, nil
}

// Stats aggregates totals, error rate and average latency over the request log.
func (r *RequestLogRepository) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_error),
		       COALESCE(AVG(latency_ms), 0),
		       COUNT(*) FILTER (WHERE timestamp >= $1)
		FROM request_logs
	`, time.Now().Add(-24*time.Hour)).Scan(
		&stats.TotalRequests,
		&stats.ErrorRequests,
		&stats.AvgLatencyMs,
		&stats.RecentRequests24,
	)
	if err != nil {
		return nil, fmt.Errorf("request log stats: %w", err)
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.TotalRequests-stats.ErrorRequests) / float64(stats.TotalRequests) * 100
	}
	return stats, nil
}
