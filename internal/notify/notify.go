// Package notify delivers text/structured messages back to callers.
// It abstracts the chat transport: the core fires and forgets, logging
// delivery failures without ever blocking the conversation on them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Message is an outbound chat message. Markup is optional structured
// content (e.g. reply buttons) the transport may render.
type Message struct {
	Text   string                 `json:"text"`
	Markup map[string]interface{} `json:"markup,omitempty"`
}

// Sink delivers a message to a recipient identified by their chat
// transport identity.
type Sink interface {
	Notify(ctx context.Context, recipient string, msg Message) error
}

// LogSink writes notifications to the process log. Used when no
// transport webhook is configured.
type LogSink struct{}

// Notify logs the message.
func (LogSink) Notify(ctx context.Context, recipient string, msg Message) error {
	log.Printf("[Notify] to=%s: %s", recipient, msg.Text)
	return nil
}

// WebhookSink POSTs notifications to the chat transport's outbound
// endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink with the given delivery timeout.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// outboundPayload is the wire shape the transport expects.
type outboundPayload struct {
	Recipient string                 `json:"recipient"`
	Text      string                 `json:"text"`
	Markup    map[string]interface{} `json:"markup,omitempty"`
}

// Notify delivers the message. Non-2xx responses are errors; callers
// are expected to log and move on.
func (s *WebhookSink) Notify(ctx context.Context, recipient string, msg Message) error {
	payload, err := json.Marshal(outboundPayload{
		Recipient: recipient,
		Text:      msg.Text,
		Markup:    msg.Markup,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification delivery failed: status %d", resp.StatusCode)
	}
	return nil
}

// Ensure both sinks implement Sink
var (
	_ Sink = LogSink{}
	_ Sink = (*WebhookSink)(nil)
)
