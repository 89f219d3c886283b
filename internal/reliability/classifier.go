package reliability

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// IsRetryableHTTPStatus classifies transient upstream HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// UpstreamError describes a non-success response from an external provider.
// Nothing retries automatically; Retryable only tells the caller whether
// asking the user to try again is worthwhile.
type UpstreamError struct {
	Provider  string
	Op        string
	Status    int
	Detail    string
	Retryable bool
}

func NewUpstreamError(provider, op string, status int, body []byte) *UpstreamError {
	return &UpstreamError{
		Provider:  provider,
		Op:        op,
		Status:    status,
		Detail:    strings.TrimSpace(string(body)),
		Retryable: IsRetryableHTTPStatus(status),
	}
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: status %d", e.Provider, e.Op, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Status, e.Detail)
}

// Retryable reports whether asking the user to try again is worthwhile.
// Status errors follow IsRetryableHTTPStatus; timeouts and transport
// failures are retryable; cancellation is not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// Code returns a short label suitable for metrics.
func Code(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		if ue.Retryable {
			return fmt.Sprintf("http_%d_retryable", ue.Status)
		}
		return fmt.Sprintf("http_%d", ue.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "transport"
}
