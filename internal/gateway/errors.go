package gateway

import (
	"fmt"
	"time"
)

// AuthFailureReason distinguishes why authentication failed.
type AuthFailureReason int

const (
	// MissingKey means no credential was supplied.
	MissingKey AuthFailureReason = iota
	// InvalidKey means the credential did not match any record.
	InvalidKey
	// InactiveKey means the credential matched a deactivated record.
	// Reported to clients with the same message as InvalidKey so key
	// state cannot be probed.
	InactiveKey
)

// AuthError reports an authentication failure.
type AuthError struct {
	Reason AuthFailureReason
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case MissingKey:
		return "authentication failed: missing API key"
	case InactiveKey:
		return "authentication failed: inactive API key"
	default:
		return "authentication failed: invalid API key"
	}
}

// Window identifies a rate limit accounting window.
type Window string

const (
	// WindowMinute is the per-minute accounting window.
	WindowMinute Window = "minute"
	// WindowHour is the per-hour accounting window.
	WindowHour Window = "hour"
)

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	if w == WindowHour {
		return time.Hour
	}
	return time.Minute
}

// RateLimitError reports that a key exceeded one of its windows.
type RateLimitError struct {
	Window     Window
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per %s", e.Limit, e.Window)
}

// RetryAfterSeconds returns the retry delay in whole seconds, rounded up
// and never below one.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// ServiceNotFoundError reports an unresolvable service name.
type ServiceNotFoundError struct {
	Service string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service %q is not configured", e.Service)
}

// ServiceInactiveError reports a resolved but disabled service.
type ServiceInactiveError struct {
	Service string
}

func (e *ServiceInactiveError) Error() string {
	return fmt.Sprintf("service %q is currently unavailable", e.Service)
}

// UpstreamFailureKind classifies a failed forwarding attempt.
type UpstreamFailureKind int

const (
	// ConnectionRefused means the backend could not be reached.
	ConnectionRefused UpstreamFailureKind = iota
	// Timeout means the backend did not answer within the configured timeout.
	Timeout
	// ProtocolError covers any other transport-level failure.
	ProtocolError
)

// UpstreamError reports a failed forwarding attempt to a backend.
type UpstreamError struct {
	Kind    UpstreamFailureKind
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case Timeout:
		return fmt.Sprintf("request to %s timed out", e.Service)
	case ConnectionRefused:
		return fmt.Sprintf("unable to connect to %s", e.Service)
	default:
		return fmt.Sprintf("error while proxying request to %s", e.Service)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
