package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
)

// DefaultTimeout bounds a single webhook delivery.
const DefaultTimeout = 10 * time.Second

// webhookPayload is the chat webhook body. "content" is accepted by Discord
// and by Slack-compatible relays that map it to text.
type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Webhook posts alerts to a chat webhook URL.
type Webhook struct {
	URL      string
	Username string
	Client   *http.Client
}

// NewWebhook creates a webhook notifier with its own client timeout.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Webhook{
		URL:      url,
		Username: "shinyhunt",
		Client:   &http.Client{Timeout: timeout},
	}
}

// Alert implements Notifier. Any non-2xx response is a failure; the
// request is not retried.
func (w *Webhook) Alert(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{Content: msg.String(), Username: w.Username})
	if err != nil {
		return errors.NewNotifyError("webhook", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return errors.NewNotifyError("webhook", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			err = errors.Join(errors.ErrTimeout, err)
		}
		return errors.NewNotifyError("webhook", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewNotifyError("webhook", fmt.Errorf("unexpected response %s", resp.Status)).
			WithStatus(resp.StatusCode)
	}
	return nil
}
