package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
)

// StatusCoder is implemented by errors that carry an HTTP status code,
// such as Graph API error responses.
type StatusCoder interface {
	StatusCode() int
}

// ShouldRetry reports whether an outbound call error is worth retrying.
// It focuses on transient dial/timeout failures produced by net/http while
// contacting the Graph API, plus rate-limit and server-side HTTP statuses.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		status := sc.StatusCode()
		return status == http.StatusTooManyRequests || status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
		if nested, ok := opErr.Err.(net.Error); ok && nested.Timeout() {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}

	return false
}
