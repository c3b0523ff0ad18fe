package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AdbAutoPlayer/shell/internal/logging"
	"github.com/AdbAutoPlayer/shell/internal/models"
)

const (
	// DefaultWebhookTimeout bounds a single webhook request.
	DefaultWebhookTimeout = 5 * time.Second

	webhookAvatarURL = "https://raw.githubusercontent.com/AdbAutoPlayer/AdbAutoPlayer/refs/heads/main/app-icon.png"
)

type webhookPayload struct {
	Content   string `json:"content"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Webhook posts messages to Discord-compatible webhooks.
type Webhook struct {
	client *http.Client
	log    *slog.Logger
	wg     sync.WaitGroup
}

// NewWebhook creates a webhook sender. A non-positive timeout uses
// DefaultWebhookTimeout.
func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{
		client: &http.Client{Timeout: timeout},
		log:    logging.For("notify"),
	}
}

// Send posts content to url in the background and returns immediately.
// Failures are logged at debug level and otherwise discarded.
func (w *Webhook) Send(url, content string) {
	if url == "" {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Post(context.Background(), url, content); err != nil {
			w.log.Debug("webhook failed", "error", err)
		}
	}()
}

// Wait blocks until every request started by Send has finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

// Post sends content to url and waits for the response.
func (w *Webhook) Post(ctx context.Context, url, content string) error {
	body, err := json.Marshal(webhookPayload{
		Content:   content,
		Username:  models.AppName,
		AvatarURL: webhookAvatarURL,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
