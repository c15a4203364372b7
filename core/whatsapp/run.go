package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vmartins/esterbot/core/logger"
)

// RunOptions controls the behaviour of RunWebhook.
type RunOptions struct {
	Listen  string
	Port    int
	Path    string
	Handler http.Handler

	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// RunWebhook serves the webhook endpoint until the provided context is done,
// then shuts the server down gracefully.
func RunWebhook(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Handler == nil {
		return fmt.Errorf("whatsapp: nil webhook handler provided")
	}
	path := opts.Path
	if path == "" {
		path = "/webhook"
	}

	mux := http.NewServeMux()
	mux.Handle(path, opts.Handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := net.JoinHostPort(opts.Listen, strconv.Itoa(opts.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx); err != nil {
			return err
		}
	}

	logger.Info(ctx, "webhook", "listen",
		slog.String("addr", addr),
		slog.String("path", path),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		}
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.Background()); err != nil {
			return err
		}
	}

	return runErr
}
