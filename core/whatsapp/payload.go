package whatsapp

import "strings"

// Webhook payload shapes as delivered by the Cloud API. Only the fields this
// service consumes are declared; everything else is ignored on decode.

// WebhookPayload is the top-level body of a webhook POST.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one WhatsApp Business Account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one field-level notification.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value holds the inbound messages of a change.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
}

// Message is a single inbound message.
type Message struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// Text is the body of a plain text message.
type Text struct {
	Body string `json:"body"`
}

// Interactive is the payload of an interactive reply.
type Interactive struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
}

// ButtonReply identifies the pressed reply button.
type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// EventType discriminates the inbound event kinds the bot understands.
type EventType string

const (
	// EventText is a plain text message.
	EventText EventType = "text"
	// EventButton is a single-level reply-button press.
	EventButton EventType = "button"
)

// Event is the normalized inbound event handed to the conversation layer.
type Event struct {
	Sender    string
	MessageID string
	Type      EventType
	Text      string
	ButtonID  string
}

// Events extracts the well-formed inbound events from the payload.
// Messages with missing required fields or unsupported types are skipped
// rather than surfaced as errors; the webhook must never fail a delivery
// because one message in the batch is malformed.
func (p *WebhookPayload) Events() []Event {
	if p == nil {
		return nil
	}
	var events []Event
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				ev, ok := eventFromMessage(msg)
				if !ok {
					continue
				}
				events = append(events, ev)
			}
		}
	}
	return events
}

func eventFromMessage(msg Message) (Event, bool) {
	if strings.TrimSpace(msg.ID) == "" || strings.TrimSpace(msg.From) == "" {
		return Event{}, false
	}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return Event{}, false
		}
		return Event{
			Sender:    msg.From,
			MessageID: msg.ID,
			Type:      EventText,
			Text:      msg.Text.Body,
		}, true
	case "interactive":
		if msg.Interactive == nil || msg.Interactive.Type != "button_reply" || msg.Interactive.ButtonReply == nil {
			return Event{}, false
		}
		if msg.Interactive.ButtonReply.ID == "" {
			return Event{}, false
		}
		return Event{
			Sender:    msg.From,
			MessageID: msg.ID,
			Type:      EventButton,
			ButtonID:  msg.Interactive.ButtonReply.ID,
		}, true
	default:
		return Event{}, false
	}
}
