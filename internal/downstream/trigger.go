// Package downstream signals the consolidated-incident batch job after a
// deduplication run commits new merges.
package downstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Trigger asks the downstream batch job to re-scan for new merges. The call
// carries no payload; it is a load-bearing signal, and a failure must surface
// to the caller of the run.
type Trigger interface {
	TriggerRescan(ctx context.Context) error
}

// WebhookTrigger posts a rescan request to a fixed URL
type WebhookTrigger struct {
	url    string
	client *http.Client
}

// NewWebhookTrigger creates a trigger posting to url
func NewWebhookTrigger(url string, timeout time.Duration) *WebhookTrigger {
	return &WebhookTrigger{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (t *WebhookTrigger) TriggerRescan(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader([]byte(`{"action":"rescan"}`)))
	if err != nil {
		return fmt.Errorf("build rescan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger rescan: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("trigger rescan: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// NoopTrigger is used in local development when no downstream job exists
type NoopTrigger struct{}

func (NoopTrigger) TriggerRescan(ctx context.Context) error {
	return nil
}
