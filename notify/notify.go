// Package notify posts sync summaries to a community webhook endpoint.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rpblab/beyscout/config"
)

// Event is the payload sent to the webhook endpoint.
type Event struct {
	Type      string      `json:"type"` // e.g. "lineup.synced", "news.updated"
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier delivers events to one configured endpoint. A Notifier with
// an empty URL is a no-op, so callers never have to branch on config.
type Notifier struct {
	url    string
	secret string
	client *http.Client
}

func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		url:    cfg.URL,
		secret: cfg.Secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends one event synchronously. The request body is signed with
// HMAC-SHA256 when a secret is configured.
// Header: X-Beyscout-Signature: sha256=<hex>
func (n *Notifier) Notify(ctx context.Context, eventType string, data interface{}) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "beyscout/1.0")

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Beyscout-Signature", "sha256="+sig)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: endpoint returned status %d", resp.StatusCode)
	}

	slog.Info("notification delivered", "event", eventType)
	return nil
}
