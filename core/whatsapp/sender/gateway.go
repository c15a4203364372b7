package sender

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vmartins/esterbot/core/logger"
	"github.com/vmartins/esterbot/core/whatsapp"
)

// Messenger is the subset of the Graph API client the gateway needs.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
}

// Gateway queues outbound messages on the dispatcher so conversation handling
// never blocks on provider latency. When the queue is saturated or closed it
// falls back to a direct synchronous send to avoid dropping replies.
type Gateway struct {
	dispatcher *Dispatcher
	client     Messenger
}

// NewGateway wires a dispatcher in front of the Graph API client.
func NewGateway(d *Dispatcher, client Messenger) *Gateway {
	return &Gateway{dispatcher: d, client: client}
}

// SendText queues a plain text message.
func (g *Gateway) SendText(ctx context.Context, to, body string) error {
	return g.enqueue(ctx, "send.text", func() error {
		return g.client.SendText(context.WithoutCancel(ctx), to, body)
	})
}

// SendButtons queues a reply-button menu.
func (g *Gateway) SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error {
	return g.enqueue(ctx, "send.buttons", func() error {
		return g.client.SendButtons(context.WithoutCancel(ctx), to, body, buttons)
	})
}

func (g *Gateway) enqueue(ctx context.Context, action string, run func() error) error {
	if g.dispatcher == nil {
		return run()
	}
	if err := g.dispatcher.Enqueue(ctx, action, run); err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
			logger.Warn(ctx, "sender", "queue.fallback",
				slog.String("action", action),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}
