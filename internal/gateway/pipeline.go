package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	logpkg "github.com/benvon/apigate/internal/logger"
	"go.uber.org/zap"
)

// Pipeline sequences authentication, rate limiting, routing and forwarding
// for one request, short-circuiting to logging on the first failure. Every
// request produces exactly one audit entry.
type Pipeline struct {
	auth      *Authenticator
	limiter   *RateLimiter
	router    *Router
	forwarder *Forwarder
	audit     AuditRecorder
	log       *zap.Logger
	now       func() time.Time
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(auth *Authenticator, limiter *RateLimiter, router *Router, forwarder *Forwarder, audit AuditRecorder, log *zap.Logger) *Pipeline {
	return &Pipeline{
		auth:      auth,
		limiter:   limiter,
		router:    router,
		forwarder: forwarder,
		audit:     audit,
		log:       log,
		now:       time.Now,
	}
}

// Serve runs the full pipeline for one inbound proxy request.
func (p *Pipeline) Serve(w http.ResponseWriter, r *http.Request, serviceName, rest string) {
	ctx := r.Context()
	rc := newRequestContext(r, p.now())

	for rc.State = StateAuthenticating; rc.State != StateLogging; {
		switch rc.State {
		case StateAuthenticating:
			key, err := p.auth.Authenticate(ctx, r)
			if err != nil {
				rc.Failure = err
				rc.State = StateLogging
				continue
			}
			rc.Key = key
			rc.State = StateRateChecking

		case StateRateChecking:
			if err := p.limiter.Check(ctx, rc.Key, p.now()); err != nil {
				rc.Failure = err
				rc.State = StateLogging
				continue
			}
			rc.State = StateRouting

		case StateRouting:
			svc, err := p.router.Route(ctx, serviceName)
			if err != nil {
				rc.Failure = err
				rc.State = StateLogging
				continue
			}
			rc.Service = svc
			rc.State = StateForwarding

		case StateForwarding:
			rc.DownstreamURL = TargetURL(rc.Service.BaseURL, rest)
			result, err := p.forwarder.Forward(w, r, rc.Service, rest)
			if err != nil {
				rc.Failure = err
				rc.State = StateLogging
				continue
			}
			rc.StatusCode = result.StatusCode
			rc.State = StateLogging
		}
	}

	if rc.Failure != nil {
		rc.StatusCode = p.writeFailure(w, rc.Failure)
	}

	p.audit.Record(rc.logEntry(p.now()))
	rc.State = StateComplete

	p.log.Info("proxy_request",
		zap.String("method", rc.Method),
		zap.String("path", logpkg.SanitizePath(rc.Path)),
		zap.Int("status_code", rc.StatusCode),
		zap.Float64("latency_ms", float64(p.now().Sub(rc.Start))/float64(time.Millisecond)),
	)
}

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// writeFailure maps the first stage failure onto the client-visible response
// and returns the status it wrote.
func (p *Pipeline) writeFailure(w http.ResponseWriter, failure error) int {
	var (
		status int
		body   errorBody
	)

	var authErr *AuthError
	var rateErr *RateLimitError
	var notFoundErr *ServiceNotFoundError
	var inactiveErr *ServiceInactiveError
	var upstreamErr *UpstreamError

	switch {
	case errors.As(failure, &authErr):
		status = http.StatusUnauthorized
		if authErr.Reason == MissingKey {
			body = errorBody{
				Error:   "API key required",
				Message: "Please provide a valid API key in the X-API-Key header or Authorization header",
			}
		} else {
			body = errorBody{
				Error:   "Invalid API key",
				Message: "The provided API key is invalid or inactive",
			}
		}

	case errors.As(failure, &rateErr):
		status = http.StatusTooManyRequests
		retryAfter := rateErr.RetryAfterSeconds()
		body = errorBody{
			Error:      "Rate limit exceeded",
			Message:    fmt.Sprintf("Rate limit exceeded: %d requests per %s", rateErr.Limit, rateErr.Window),
			RetryAfter: retryAfter,
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))

	case errors.As(failure, &notFoundErr):
		status = http.StatusNotFound
		body = errorBody{
			Error:   "Service not found",
			Message: fmt.Sprintf("Service %q is not configured", notFoundErr.Service),
		}

	case errors.As(failure, &inactiveErr):
		status = http.StatusServiceUnavailable
		body = errorBody{
			Error:   "Service unavailable",
			Message: fmt.Sprintf("Service %q is currently unavailable", inactiveErr.Service),
		}

	case errors.As(failure, &upstreamErr):
		switch upstreamErr.Kind {
		case Timeout:
			status = http.StatusGatewayTimeout
			body = errorBody{
				Error:   "Request timeout",
				Message: fmt.Sprintf("Request to %s timed out", upstreamErr.Service),
			}
		case ConnectionRefused:
			status = http.StatusBadGateway
			body = errorBody{
				Error:   "Service unavailable",
				Message: fmt.Sprintf("Unable to connect to %s", upstreamErr.Service),
			}
		default:
			status = http.StatusBadGateway
			body = errorBody{
				Error:   "Proxy error",
				Message: fmt.Sprintf("Error while proxying request to %s", upstreamErr.Service),
			}
		}

	default:
		p.log.Error("pipeline_stage_failed",
			zap.Error(failure),
		)
		status = http.StatusInternalServerError
		body = errorBody{
			Error:   "Internal server error",
			Message: "An unexpected error occurred",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		p.log.Error("failed_to_encode_error_response",
			zap.Int("status_code", status),
			zap.Error(err),
		)
	}
	return status
}
