package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"github.com/vmartins/esterbot/core/logger"
)

const maxWebhookBody = 1 << 20

// EventHandler consumes one normalized inbound event.
type EventHandler func(ctx context.Context, ev Event)

// WebhookHandler terminates the Cloud API webhook: GET verification handshake
// and POST message deliveries. Extracted events are handed to the configured
// EventHandler; the provider always receives 200 for accepted deliveries so it
// does not retry forever.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onEvent     EventHandler
}

// NewWebhookHandler builds the webhook endpoint handler.
// appSecret is optional; when set, POST bodies must carry a valid
// X-Hub-Signature-256 header.
func NewWebhookHandler(verifyToken, appSecret string, onEvent EventHandler) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onEvent:     onEvent,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerify(w, r)
	case http.MethodPost:
		h.handleDelivery(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")
	if token != h.verifyToken {
		logger.Warn(r.Context(), "webhook", "verify.rejected")
		http.Error(w, "invalid verify token", http.StatusForbidden)
		return
	}
	logger.Info(r.Context(), "webhook", "verify.ok")
	_, _ = io.WriteString(w, challenge)
}

func (h *WebhookHandler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	rid := uuid.NewString()
	ctx := logger.WithRID(r.Context(), rid)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		logger.Warn(ctx, "webhook", "delivery.read_failed",
			slog.String("rid", rid),
			slog.String("err", err.Error()),
		)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.appSecret != "" && !h.validSignature(body, r.Header.Get("X-Hub-Signature-256")) {
		logger.Warn(ctx, "webhook", "delivery.bad_signature", slog.String("rid", rid))
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Malformed bodies are acknowledged; there is nothing to redeliver.
		logger.Warn(ctx, "webhook", "delivery.malformed",
			slog.String("rid", rid),
			slog.String("err", err.Error()),
		)
		_, _ = io.WriteString(w, "EVENT_RECEIVED")
		return
	}

	for _, ev := range payload.Events() {
		evCtx := logger.WithMessageMeta(ctx, ev.MessageID, ev.Sender)
		logger.Debug(evCtx, "webhook", "event.received",
			slog.String("rid", rid),
			slog.String("message_id", ev.MessageID),
			slog.String("sender", logger.SanitizeLimit(ev.Sender, 32)),
			slog.String("type", string(ev.Type)),
		)
		h.dispatch(evCtx, ev)
	}

	_, _ = io.WriteString(w, "EVENT_RECEIVED")
}

// dispatch shields the HTTP layer from handler panics so one poisoned event
// cannot take the process down.
func (h *WebhookHandler) dispatch(ctx context.Context, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "webhook", "handler.panic",
				slog.Any("err", rec),
				slog.String("message_id", ev.MessageID),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	if h.onEvent != nil {
		h.onEvent(ctx, ev)
	}
}

func (h *WebhookHandler) validSignature(body []byte, header string) bool {
	sig := strings.TrimPrefix(header, "sha256=")
	if sig == "" || sig == header {
		return false
	}
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
