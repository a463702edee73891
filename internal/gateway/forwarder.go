package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/benvon/apigate/internal/models"
	"github.com/benvon/apigate/internal/request"
	"go.uber.org/zap"
)

// sensitiveRequestHeaders are never forwarded downstream: the credential
// headers themselves plus hop-by-hop fields. Host is handled separately via
// the outbound request URL.
var sensitiveRequestHeaders = map[string]struct{}{
	"x-api-key":         {},
	"authorization":     {},
	"cookie":            {},
	"host":              {},
	"connection":        {},
	"content-length":    {},
	"transfer-encoding": {},
}

// hopByHopResponseHeaders are stripped from relayed responses.
var hopByHopResponseHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"content-length":      {},
}

// ForwardResult reports the relayed status and elapsed time of a successful
// forwarding attempt.
type ForwardResult struct {
	StatusCode int
	TargetURL  string
	Duration   time.Duration
}

// Forwarder sends exactly one downstream request per call and relays the
// response, streaming bodies in both directions.
type Forwarder struct {
	client    *http.Client
	sensitive map[string]struct{}
	log       *zap.Logger
}

// NewForwarder creates a forwarder. extraSensitive lists additional header
// names (case-insensitive) to strip before forwarding.
func NewForwarder(extraSensitive []string, log *zap.Logger) *Forwarder {
	sensitive := make(map[string]struct{}, len(sensitiveRequestHeaders)+len(extraSensitive))
	for h := range sensitiveRequestHeaders {
		sensitive[h] = struct{}{}
	}
	for _, h := range extraSensitive {
		sensitive[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Forwarder{
		client: &http.Client{
			Transport: transport,
			// Redirects are relayed to the caller, not followed.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		sensitive: sensitive,
		log:       log,
	}
}

// TargetURL joins a service base URL with the remaining request path.
func TargetURL(baseURL, rest string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if rest == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(rest, "/")
}

// Forward sends the downstream request and relays the response to w. The
// attempt is bounded by the service timeout and is never retried. The
// inbound request context is the parent, so a client disconnect aborts the
// in-flight downstream call.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, svc *models.ServiceConfig, rest string) (*ForwardResult, error) {
	target := TargetURL(svc.BaseURL, rest)
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}

	ctx, cancel := context.WithTimeout(r.Context(), svc.Timeout())
	defer cancel()

	out, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, &UpstreamError{Kind: ProtocolError, Service: svc.Name, Err: err}
	}
	out.ContentLength = r.ContentLength

	for name, values := range r.Header {
		if _, drop := f.sensitive[strings.ToLower(name)]; drop {
			continue
		}
		out.Header[name] = values
	}
	out.Header.Set("X-Forwarded-For", request.ClientIP(r))
	out.Header.Set("X-Forwarded-Host", r.Host)
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	out.Header.Set("X-Forwarded-Proto", proto)

	start := time.Now()
	resp, err := f.client.Do(out)
	if err != nil {
		return nil, &UpstreamError{Kind: classifyTransportError(ctx, err), Service: svc.Name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	header := w.Header()
	for name, values := range resp.Header {
		if _, drop := hopByHopResponseHeaders[strings.ToLower(name)]; drop {
			continue
		}
		header[name] = values
	}
	w.WriteHeader(resp.StatusCode)

	// Past this point the status line is on the wire; relay failures can
	// only be logged, not turned into a gateway error response.
	if _, err := io.Copy(w, resp.Body); err != nil {
		f.log.Warn("response_relay_interrupted",
			zap.String("service", svc.Name),
			zap.String("target", target),
			zap.Error(err),
		)
	}

	return &ForwardResult{
		StatusCode: resp.StatusCode,
		TargetURL:  target,
		Duration:   time.Since(start),
	}, nil
}

// CheckHealth issues a GET to the service's configured health path.
func (f *Forwarder) CheckHealth(ctx context.Context, svc *models.ServiceConfig) (bool, string) {
	target := strings.TrimSuffix(svc.BaseURL, "/") + svc.HealthPath()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err.Error()
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, fmt.Sprintf("Status: %d", resp.StatusCode)
}

// classifyTransportError maps a failed attempt onto the upstream error
// taxonomy: deadline hits are timeouts, dial failures are refused
// connections, everything else is a protocol error.
func classifyTransportError(ctx context.Context, err error) UpstreamFailureKind {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectionRefused
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ConnectionRefused
	}
	return ProtocolError
}
