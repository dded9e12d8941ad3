// Package upstream talks to the provider quota APIs: Google's internal Cloud
// Code endpoint and the Z.ai/Zhipu usage monitor.
package upstream

import (
	"errors"
	"net/http"
	"time"
)

var (
	// ErrForbidden indicates the quota endpoint rejected the call with a
	// permission error, distinct from token expiry. Callers surface this as a
	// forbidden flag rather than a hard failure.
	ErrForbidden = errors.New("upstream permission denied")

	// ErrUnavailable indicates a transient network or server-side failure.
	ErrUnavailable = errors.New("upstream unavailable")
)

const defaultTimeout = 30 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func isForbiddenStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
