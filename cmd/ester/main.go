package main

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vmartins/esterbot/bot/dedup"
	"github.com/vmartins/esterbot/bot/flow"
	"github.com/vmartins/esterbot/bot/history"
	"github.com/vmartins/esterbot/bot/session"
	"github.com/vmartins/esterbot/core/bootstrap"
	"github.com/vmartins/esterbot/core/cmd"
	coreconfig "github.com/vmartins/esterbot/core/config"
	"github.com/vmartins/esterbot/core/whatsapp"
	"github.com/vmartins/esterbot/core/whatsapp/sender"
)

const defaultDedupWindow = 24 * time.Hour

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		Bootstrap:         newApp,
	})
	if err != nil {
		log.Fatalf("ester: %v", err)
	}
}

type app struct {
	cfg        *coreconfig.Config
	handler    *whatsapp.WebhookHandler
	dispatcher *sender.Dispatcher
	db         *sqlx.DB
}

func newApp(cfg *coreconfig.Config) (cmd.App, error) {
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	client, err := whatsapp.NewClient(whatsapp.ClientOptions{
		BaseURL:       cfg.WhatsApp.BaseURL,
		APIVersion:    cfg.WhatsApp.APIVersion,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
	})
	if err != nil {
		return nil, err
	}

	dispatcher := sender.NewDispatcher(sender.Options{
		QueueSize:    cfg.Sender.QueueSize,
		Workers:      cfg.Sender.Workers,
		MaxRetries:   cfg.Sender.MaxRetries,
		RetryBackoff: time.Duration(cfg.Sender.RetryBackoffMS) * time.Millisecond,
	})

	window := defaultDedupWindow
	if cfg.Dedup.WindowMinutes > 0 {
		window = time.Duration(cfg.Dedup.WindowMinutes) * time.Minute
	}

	var recorder flow.Recorder
	if res.DB != nil {
		recorder = history.NewStore(res.DB)
	}

	engine := flow.New(flow.Options{
		Sessions: session.NewStore(),
		Guard:    dedup.NewGuard(window),
		Gateway:  sender.NewGateway(dispatcher, client),
		Recorder: recorder,
	})

	handler := whatsapp.NewWebhookHandler(
		cfg.WhatsApp.VerifyToken,
		cfg.WhatsApp.AppSecret,
		engine.HandleEvent,
	)

	return &app{
		cfg:        cfg,
		handler:    handler,
		dispatcher: dispatcher,
		db:         res.DB,
	}, nil
}

// WebhookRunOptions assembles the run options consumed by the core runner.
func (a *app) WebhookRunOptions() (whatsapp.RunOptions, error) {
	return whatsapp.RunOptions{
		Listen:  a.cfg.Webhook.Listen,
		Port:    a.cfg.Webhook.Port,
		Path:    a.cfg.Webhook.Path,
		Handler: a.handler,
		OnStop: func(_ context.Context) error {
			a.dispatcher.Close()
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}
