package sender

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vmartins/esterbot/core/whatsapp"
)

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	buttons []string
	done    chan struct{}
}

func newFakeMessenger(expected int) *fakeMessenger {
	return &fakeMessenger{done: make(chan struct{}, expected)}
}

func (m *fakeMessenger) SendText(_ context.Context, _, body string) error {
	m.mu.Lock()
	m.texts = append(m.texts, body)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *fakeMessenger) SendButtons(_ context.Context, _, body string, _ []whatsapp.Button) error {
	m.mu.Lock()
	m.buttons = append(m.buttons, body)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *fakeMessenger) await(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.done:
		case <-time.After(2 * time.Second):
			t.Fatal("send did not complete")
		}
	}
}

func TestGatewayQueuesSends(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1})
	defer d.Close()

	m := newFakeMessenger(2)
	g := NewGateway(d, m)

	require.NoError(t, g.SendText(context.Background(), "551", "olá"))
	require.NoError(t, g.SendButtons(context.Background(), "551", "escolha", []whatsapp.Button{{ID: "a", Title: "A"}}))
	m.await(t, 2)

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Equal(t, []string{"olá"}, m.texts)
	require.Equal(t, []string{"escolha"}, m.buttons)
}

func TestGatewayWithoutDispatcherSendsDirectly(t *testing.T) {
	m := newFakeMessenger(1)
	g := NewGateway(nil, m)

	require.NoError(t, g.SendText(context.Background(), "551", "olá"))

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Equal(t, []string{"olá"}, m.texts)
}

func TestGatewayFallsBackWhenQueueClosed(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1})
	d.Close()

	m := newFakeMessenger(1)
	g := NewGateway(d, m)

	require.NoError(t, g.SendText(context.Background(), "551", "olá"))

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Equal(t, []string{"olá"}, m.texts)
}

func TestGatewaySendOutlivesCanceledRequest(t *testing.T) {
	d := newTestDispatcher(Options{Workers: 1})
	defer d.Close()

	var gotCtx context.Context
	m := newFakeMessenger(1)
	g := NewGateway(d, &ctxCapturingMessenger{inner: m, captured: &gotCtx})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, g.SendText(ctx, "551", "olá"))
	cancel()
	m.await(t, 1)

	// The queued send must not be canceled along with the webhook request.
	require.NoError(t, gotCtx.Err())
}

type ctxCapturingMessenger struct {
	inner    *fakeMessenger
	captured *context.Context
}

func (m *ctxCapturingMessenger) SendText(ctx context.Context, to, body string) error {
	*m.captured = ctx
	return m.inner.SendText(ctx, to, body)
}

func (m *ctxCapturingMessenger) SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error {
	*m.captured = ctx
	return m.inner.SendButtons(ctx, to, body, buttons)
}
