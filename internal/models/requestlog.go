package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestLogEntry is the immutable audit record produced once per inbound
// proxy request, whatever its outcome. Fields unknown to the stage where the
// request failed stay unset.
type RequestLogEntry struct {
	ID            uuid.UUID  `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	Method        string     `json:"method"`
	Path          string     `json:"path"`
	KeyID         *uuid.UUID `json:"key_id,omitempty"`
	ClientIP      string     `json:"client_ip"`
	UserAgent     string     `json:"user_agent,omitempty"`
	ServiceName   *string    `json:"service_name,omitempty"`
	DownstreamURL *string    `json:"downstream_url,omitempty"`
	StatusCode    int        `json:"status_code"`
	LatencyMs     float64    `json:"latency_ms"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	IsError       bool       `json:"is_error"`
}

// LogFilter narrows log queries. Zero values mean "no filter".
type LogFilter struct {
	ServiceName string
	StatusCode  int
	Limit       int
	Offset      int
}

// Stats summarizes gateway traffic from the request log.
type Stats struct {
	TotalRequests    int64   `json:"total_requests"`
	ErrorRequests    int64   `json:"error_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     float64 `json:"average_response_time_ms"`
	RecentRequests24 int64   `json:"recent_requests_24h"`
}
