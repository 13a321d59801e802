package changes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Notifier: delivers a report with changes somewhere a maintainer will see it.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

type notification struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// WebhookNotifier: posts reports to an incoming-webhook URL (Slack compatible payload).
type WebhookNotifier struct {
	httpClient *http.Client
	url        string
}

// NewWebhookNotifier: creates a WebhookNotifier. An empty url yields nil.
func NewWebhookNotifier(httpClient *http.Client, url string, timeout time.Duration) *WebhookNotifier {
	if url == "" {
		return nil
	}
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &WebhookNotifier{httpClient: httpClient, url: url}
}

// Notify: posts {"text", "attachments"} for report.
func (n *WebhookNotifier) Notify(ctx context.Context, report Report) error {
	payload, err := json.Marshal(notification{Text: report.Text(), Attachments: report.Attachments()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post notification: status %d", resp.StatusCode)
	}
	return nil
}
