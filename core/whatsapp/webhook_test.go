package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyHandshake(t *testing.T) {
	h := NewWebhookHandler("secret-token", "", nil)

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", "secret-token")
	q.Set("hub.challenge", "1158201444")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhook?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1158201444", rr.Body.String())
}

func TestVerifyRejectsWrongToken(t *testing.T) {
	h := NewWebhookHandler("secret-token", "", nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhook?hub.verify_token=guess&hub.challenge=1", nil))

	require.Equal(t, http.StatusForbidden, rr.Code)
	require.NotContains(t, rr.Body.String(), "1")
}

func TestDeliveryDispatchesEvents(t *testing.T) {
	var got []Event
	h := NewWebhookHandler("secret-token", "", func(_ context.Context, ev Event) {
		got = append(got, ev)
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(deliveryJSON)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "EVENT_RECEIVED", rr.Body.String())
	require.Len(t, got, 2)
	require.Equal(t, "wamid.text", got[0].MessageID)
	require.Equal(t, "has_limit", got[1].ButtonID)
}

func TestDeliveryAcksMalformedBody(t *testing.T) {
	called := false
	h := NewWebhookHandler("secret-token", "", func(context.Context, Event) { called = true })

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json")))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "EVENT_RECEIVED", rr.Body.String())
	require.False(t, called)
}

func TestDeliverySignatureCheck(t *testing.T) {
	const appSecret = "app-secret"

	sign := func(body string) string {
		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write([]byte(body))
		return "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("valid", func(t *testing.T) {
		dispatched := 0
		h := NewWebhookHandler("secret-token", appSecret, func(context.Context, Event) { dispatched++ })

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(deliveryJSON))
		req.Header.Set("X-Hub-Signature-256", sign(deliveryJSON))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, 2, dispatched)
	})

	t.Run("wrong signature", func(t *testing.T) {
		dispatched := 0
		h := NewWebhookHandler("secret-token", appSecret, func(context.Context, Event) { dispatched++ })

		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(deliveryJSON))
		req.Header.Set("X-Hub-Signature-256", "sha256="+strings.Repeat("ab", 32))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		require.Equal(t, http.StatusForbidden, rr.Code)
		require.Zero(t, dispatched)
	})

	t.Run("missing header", func(t *testing.T) {
		h := NewWebhookHandler("secret-token", appSecret, nil)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(deliveryJSON)))

		require.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestDeliverySurvivesHandlerPanic(t *testing.T) {
	h := NewWebhookHandler("secret-token", "", func(context.Context, Event) {
		panic("poisoned event")
	})

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(deliveryJSON)))
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "EVENT_RECEIVED", rr.Body.String())
}

func TestUnsupportedMethod(t *testing.T) {
	h := NewWebhookHandler("secret-token", "", nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/webhook", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
