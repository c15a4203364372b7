package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Button is one reply button of an interactive message.
type Button struct {
	ID    string
	Title string
}

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

// Error renders the API error for logs.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("whatsapp: api error %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("whatsapp: api error %d", e.Status)
}

// StatusCode reports the HTTP status for retry classification.
func (e *APIError) StatusCode() int {
	return e.Status
}

// ClientOptions configures the outbound Graph API client.
type ClientOptions struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	HTTPClient    *http.Client
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewClient builds a Client; zero options fall back to production defaults.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.PhoneNumberID) == "" {
		return nil, fmt.Errorf("whatsapp: phone number id is required")
	}
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, fmt.Errorf("whatsapp: access token is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}
	version := opts.APIVersion
	if version == "" {
		version = "v22.0"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = BuildHTTPClient()
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   fmt.Sprintf("%s/%s/%s/messages", base, version, opts.PhoneNumberID),
		token:      opts.AccessToken,
	}, nil
}

type outboundText struct {
	Body string `json:"body"`
}

type outboundReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type outboundButton struct {
	Type  string        `json:"type"`
	Reply outboundReply `json:"reply"`
}

type outboundAction struct {
	Buttons []outboundButton `json:"buttons"`
}

type outboundInteractive struct {
	Type   string         `json:"type"`
	Body   outboundText   `json:"body"`
	Action outboundAction `json:"action"`
}

type outboundMessage struct {
	MessagingProduct string               `json:"messaging_product"`
	To               string               `json:"to"`
	Type             string               `json:"type"`
	Text             *outboundText        `json:"text,omitempty"`
	Interactive      *outboundInteractive `json:"interactive,omitempty"`
}

// SendText delivers a plain text message to the recipient.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &outboundText{Body: body},
	})
}

// SendButtons delivers a reply-button menu with the given body text.
// Button order is preserved.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) error {
	if len(buttons) == 0 {
		return fmt.Errorf("whatsapp: button menu requires at least one button")
	}
	action := outboundAction{Buttons: make([]outboundButton, 0, len(buttons))}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, outboundButton{
			Type:  "reply",
			Reply: outboundReply{ID: b.ID, Title: b.Title},
		})
	}
	return c.post(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &outboundInteractive{
			Type:   "button",
			Body:   outboundText{Body: body},
			Action: action,
		},
	})
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, msg outboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("whatsapp: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var body apiErrorBody
	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); decodeErr == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
