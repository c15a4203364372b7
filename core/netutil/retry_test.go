package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusErr struct{ status int }

func (e *statusErr) Error() string   { return "status error" }
func (e *statusErr) StatusCode() int { return e.status }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limited", err: &statusErr{status: 429}, want: true},
		{name: "server error", err: &statusErr{status: 500}, want: true},
		{name: "bad gateway", err: &statusErr{status: 502}, want: true},
		{name: "client error", err: &statusErr{status: 400}, want: false},
		{name: "not found", err: &statusErr{status: 404}, want: false},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "dial refused", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: true},
		{name: "read reset", err: &net.OpError{Op: "read", Err: errors.New("connection reset")}, want: false},
		{name: "url timeout", err: &url.Error{Op: "Post", URL: "https://graph.facebook.com", Err: timeoutErr{}}, want: true},
		{name: "url wrapping dial", err: &url.Error{Op: "Post", URL: "https://graph.facebook.com", Err: &net.OpError{Op: "dial", Err: errors.New("no route to host")}}, want: true},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestShouldRetryWrappedStatusCoder(t *testing.T) {
	err := &url.Error{Op: "Post", URL: "x", Err: &statusErr{status: 503}}
	require.True(t, ShouldRetry(err))
}
