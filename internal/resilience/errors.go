package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusError carries the HTTP status of a failed upstream call so retry
// policy can distinguish rate limiting from transient server trouble.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err with its HTTP status code.
func NewStatusError(err error, code int) *StatusError {
	return &StatusError{Code: code, Err: err}
}

// IsRateLimited reports whether the error chain contains an HTTP 429.
// Rate limiting is never retried inline; backing off is the caller's
// decision, typically on a later scheduled run.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 429
}

// IsRetryable reports whether an error is worth another attempt: transient
// server statuses (408, 5xx) and network-level failures. 429 is explicitly
// not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsRateLimited(err) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 408, 500, 502, 503, 504:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors already wrapped by HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"context deadline exceeded",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
