package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DITreneris/btcbuzzbot/internal/adapters/config"
	"github.com/DITreneris/btcbuzzbot/pkg/logger"
)

// Discord rejects messages longer than 2000 characters
const maxMessageLen = 2000

// Notifier mirrors published updates to a Discord channel webhook
type Notifier struct {
	client     *http.Client
	webhookURL string
}

// NewNotifier creates new Discord webhook notifier. Returns nil when the
// channel is disabled or no webhook URL is configured.
func NewNotifier(cfg *config.DiscordConfig) *Notifier {
	if !cfg.Enabled || cfg.WebhookURL == "" {
		return nil
	}

	return &Notifier{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: cfg.WebhookURL,
	}
}

// GetName returns channel name
func (n *Notifier) GetName() string {
	return "discord"
}

// Send posts text to the webhook. Failures are logged and reported as
// false, never as errors, so a dead side channel cannot block publishing.
func (n *Notifier) Send(ctx context.Context, text string) bool {
	payload, err := json.Marshal(map[string]string{"content": truncate(text)})
	if err != nil {
		logger.Warn("failed to encode discord payload", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		logger.Warn("failed to create discord request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Warn("discord webhook request failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("discord webhook rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return false
	}

	return true
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLen {
		return text
	}
	return string(runes[:maxMessageLen])
}
