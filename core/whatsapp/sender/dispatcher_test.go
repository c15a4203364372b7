package sender

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmartins/esterbot/core/whatsapp"
)

func newTestDispatcher(opts Options) *Dispatcher {
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	if opts.MaxDuration == 0 {
		opts.MaxDuration = time.Second
	}
	return NewDispatcher(opts)
}

func TestEnqueueRunsJob(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1})
	defer d.Close()

	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", func() error {
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
	require.Zero(t, d.ErrorCount())
}

func TestRetryThenSuccess(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1, MaxRetries: 3})
	defer d.Close()

	var attempts atomic.Int32
	done := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", func() error {
		if attempts.Add(1) < 3 {
			return &whatsapp.APIError{Status: 500}
		}
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not succeed after retries")
	}
	require.EqualValues(t, 3, attempts.Load())
	require.Zero(t, d.ErrorCount())
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1, MaxRetries: 3})

	var attempts atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", func() error {
		attempts.Add(1)
		return &whatsapp.APIError{Status: 400}
	}))
	d.Close()

	require.EqualValues(t, 1, attempts.Load())
	require.EqualValues(t, 1, d.ErrorCount())
}

func TestRetriesExhausted(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1, MaxRetries: 2})

	var attempts atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", func() error {
		attempts.Add(1)
		return &whatsapp.APIError{Status: 503}
	}))
	d.Close()

	require.EqualValues(t, 3, attempts.Load())
	require.EqualValues(t, 1, d.ErrorCount())
}

func TestEnqueueAfterClose(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "send.text", func() error { return nil })
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestEnqueueQueueFull(t *testing.T) {
	d := newTestDispatcher(Options{QueueSize: 1, Workers: 1})
	defer d.Close()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	// Occupy the single worker so subsequent jobs stay queued.
	require.NoError(t, d.Enqueue(context.Background(), "block", func() error {
		defer wg.Done()
		<-release
		return nil
	}))

	// Fill the queue slot, then overflow it.
	fullErr := errors.New("unreached")
	for i := 0; i < 10; i++ {
		fullErr = d.Enqueue(context.Background(), "overflow", func() error { return nil })
		if fullErr != nil {
			break
		}
	}
	require.ErrorIs(t, fullErr, ErrQueueFull)

	close(release)
	wg.Wait()
}

func TestEnqueueNilRun(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1})
	defer d.Close()

	require.Error(t, d.Enqueue(context.Background(), "send.text", nil))
}

func TestCloseIsIdempotent(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 2})
	d.Close()
	require.NotPanics(t, d.Close)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "server error", err: &whatsapp.APIError{Status: 502}, want: "http_5xx"},
		{name: "client error", err: &whatsapp.APIError{Status: 403}, want: "http_4xx"},
		{name: "plain", err: errors.New("boom"), want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}
