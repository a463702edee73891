package gateway

import (
	"net/http"
	"time"

	"github.com/benvon/apigate/internal/logger"
	"github.com/benvon/apigate/internal/models"
	"github.com/benvon/apigate/internal/request"
)

// State names a stage of the proxy pipeline.
type State int

const (
	// StateReceived is the initial state of every request.
	StateReceived State = iota
	// StateAuthenticating validates the presented credential.
	StateAuthenticating
	// StateRateChecking charges the per-key window counters.
	StateRateChecking
	// StateRouting resolves the service segment of the path.
	StateRouting
	// StateForwarding sends the downstream request and relays the response.
	StateForwarding
	// StateLogging records the audit entry. Reached exactly once per request.
	StateLogging
	// StateComplete means the client response has been emitted.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateAuthenticating:
		return "authenticating"
	case StateRateChecking:
		return "rate_checking"
	case StateRouting:
		return "routing"
	case StateForwarding:
		return "forwarding"
	case StateLogging:
		return "logging"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// RequestContext accumulates stage outcomes for one request. It is owned
// exclusively by the pipeline task handling that request and is consumed by
// the audit writer when the pipeline completes.
type RequestContext struct {
	State State
	Start time.Time

	Method    string
	Path      string
	ClientIP  string
	UserAgent string

	Key           *models.APIKey
	Service       *models.ServiceConfig
	DownstreamURL string

	StatusCode int
	Failure    error
}

func newRequestContext(r *http.Request, now time.Time) *RequestContext {
	return &RequestContext{
		State:     StateReceived,
		Start:     now,
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientIP:  request.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// logEntry converts the accumulated context into the audit record. Fields
// unknown to the stage where the request failed stay unset.
func (c *RequestContext) logEntry(now time.Time) *models.RequestLogEntry {
	entry := &models.RequestLogEntry{
		Timestamp:  c.Start,
		Method:     c.Method,
		Path:       c.Path,
		ClientIP:   c.ClientIP,
		UserAgent:  c.UserAgent,
		StatusCode: c.StatusCode,
		LatencyMs:  float64(now.Sub(c.Start)) / float64(time.Millisecond),
		IsError:    c.Failure != nil || c.StatusCode >= 400,
	}
	if entry.LatencyMs < 0 {
		entry.LatencyMs = 0
	}
	if c.Key != nil {
		id := c.Key.ID
		entry.KeyID = &id
	}
	if c.Service != nil {
		name := c.Service.Name
		entry.ServiceName = &name
	}
	if c.DownstreamURL != "" {
		url := c.DownstreamURL
		entry.DownstreamURL = &url
	}
	if c.Failure != nil {
		msg := logger.SanitizeError(c.Failure)
		entry.ErrorMessage = &msg
	}
	return entry
}
