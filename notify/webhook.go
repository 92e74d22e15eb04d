package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/types"
)

// DefaultWebhookTimeout bounds a single delivery attempt.
const DefaultWebhookTimeout = 15 * time.Second

// WebhookSender posts notification events as JSON to subscriber endpoints.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a sender. A nil client gets a default with the
// standard timeout.
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: DefaultWebhookTimeout}
	}
	return &WebhookSender{client: client}
}

// Send posts the event to the URL. Any non-2xx status is a delivery
// failure.
func (s *WebhookSender) Send(ctx context.Context, url string, event types.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.WrapInvalid(err, "webhook", "Send", "encoding event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.WrapInvalid(err, "webhook", "Send", "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WrapTransient(err, "webhook", "Send", "posting to "+url)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WrapTransient(errors.ErrDeliveryFailed, "webhook", "Send",
			fmt.Sprintf("endpoint %s returned %d", url, resp.StatusCode))
	}
	return nil
}
