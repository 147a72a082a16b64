// Package notify sends recording events to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/config"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// Event names sent in WebhookPayload.Event.
const (
	EventRecordingFinished = "recording_finished"
	EventRecordingFailed   = "recording_failed"
)

// httpTimeout bounds a webhook delivery including the token request.
const httpTimeout = 10000 * time.Millisecond

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event       string `json:"event"`
	App         string `json:"app"`
	Output      string `json:"output"`
	Stream      bool   `json:"stream,omitempty"`
	ExitCode    int    `json:"exit_code"`
	Interrupted bool   `json:"interrupted,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	Removed     bool   `json:"removed,omitempty"`      // Partial file was deleted
	UploadedKey string `json:"uploaded_key,omitempty"` // S3 object key
	Message     string `json:"message,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Webhook posts recording events to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a Webhook for cfg, or nil if no URL is configured.
// When a token URL is set, requests carry an OAuth2 client-credentials token.
func NewWebhook(ctx context.Context, cfg *config.WebhookConfig) *Webhook {
	if !util.IsConfigured(cfg.URL) {
		return nil
	}

	base := &http.Client{Timeout: httpTimeout}
	client := base
	if util.IsConfigured(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret) {
		creds := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		client = creds.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		client.Timeout = httpTimeout
	}

	return &Webhook{url: cfg.URL, client: client}
}

// Send delivers payload to the webhook, stamping the app name and timestamp.
func (w *Webhook) Send(ctx context.Context, payload *WebhookPayload) error {
	payload.App = AppName
	if payload.Timestamp == "" {
		payload.Timestamp = timestampUTC()
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(jsonData))
	if err != nil {
		return util.WrapError("create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
